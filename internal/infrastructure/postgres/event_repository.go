package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

const eventColumns = `id, title, description, location, start_date, end_date, weather_data, created_at, updated_at`

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Location    string    `db:"location"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	WeatherData *string   `db:"weather_data"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() *event.Event {
	var weather string
	if r.WeatherData != nil {
		weather = *r.WeatherData
	}
	return &event.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		WeatherData: weather,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// FindByID はIDからイベントを取得する
func (r *EventRepository) FindByID(ctx context.Context, id int64) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var row eventRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// FindAll はイベント一覧を取得する
func (r *EventRepository) FindAll(ctx context.Context, req event.PageRequest) (*event.Page, error) {
	return r.findPage(ctx, "", nil, req)
}

// FindByTitleContaining はタイトルの部分一致で検索する
func (r *EventRepository) FindByTitleContaining(ctx context.Context, title string, req event.PageRequest) (*event.Page, error) {
	return r.findPage(ctx, `title ILIKE $1`, []interface{}{likePattern(title)}, req)
}

// FindByLocationContaining は場所の部分一致で検索する
func (r *EventRepository) FindByLocationContaining(ctx context.Context, location string, req event.PageRequest) (*event.Page, error) {
	return r.findPage(ctx, `location ILIKE $1`, []interface{}{likePattern(location)}, req)
}

// FindByStartDateBetween は開始日時の範囲で検索する
func (r *EventRepository) FindByStartDateBetween(ctx context.Context, start, end time.Time, req event.PageRequest) (*event.Page, error) {
	return r.findPage(ctx, `start_date BETWEEN $1 AND $2`, []interface{}{start, end}, req)
}

// findPage は条件付きで件数とページを取得する
// where句のプレースホルダは$1から始まる前提
func (r *EventRepository) findPage(ctx context.Context, where string, args []interface{}, req event.PageRequest) (*event.Page, error) {
	whereClause := ""
	if where != "" {
		whereClause = " WHERE " + where
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM events` + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("イベント件数取得に失敗しました: %w", err)
	}

	// ソート項目はPageRequestでホワイトリスト済み
	direction := "DESC"
	if req.Direction == event.Asc {
		direction = "ASC"
	}
	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM events%s
		ORDER BY %s %s, id %s
		LIMIT $%d OFFSET $%d
	`, eventColumns, whereClause, req.SortColumn(), direction, direction, n+1, n+2)

	var rows []eventRow
	pageArgs := append(append([]interface{}{}, args...), req.Size, req.Offset())
	if err := r.db.SelectContext(ctx, &rows, query, pageArgs...); err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity()
	}
	return event.NewPage(events, total, req), nil
}

// Save はイベントを作成または更新する
func (r *EventRepository) Save(ctx context.Context, e *event.Event) (*event.Event, error) {
	if e.IsNew() {
		return r.insert(ctx, e)
	}
	return r.update(ctx, e)
}

func (r *EventRepository) insert(ctx context.Context, e *event.Event) (*event.Event, error) {
	query := `
		INSERT INTO events (title, description, location, start_date, end_date, weather_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + eventColumns

	var row eventRow
	err := r.db.GetContext(ctx, &row, query,
		e.Title, e.Description, e.Location, e.StartDate, e.EndDate, nullableString(e.WeatherData), r.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

func (r *EventRepository) update(ctx context.Context, e *event.Event) (*event.Event, error) {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3, start_date = $4, end_date = $5,
		    weather_data = $6, updated_at = $7
		WHERE id = $8
		RETURNING ` + eventColumns

	var row eventRow
	err := r.db.GetContext(ctx, &row, query,
		e.Title, e.Description, e.Location, e.StartDate, e.EndDate, nullableString(e.WeatherData), r.now(), e.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント更新に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// ExistsByID はイベントの存在を確認する
func (r *EventRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("イベント存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// DeleteByID はイベントを削除する
func (r *EventRepository) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("イベント削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

// likePattern はILIKE用にワイルドカードをエスケープして部分一致パターンを作る
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)
