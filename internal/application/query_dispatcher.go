package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/logger"
)

// EventReader はQueryDispatcherが使う読み取り操作
type EventReader interface {
	ListEvents(ctx context.Context, req event.PageRequest) (*event.Page, error)
	SearchByTitle(ctx context.Context, title string, req event.PageRequest) (*event.Page, error)
	SearchByLocation(ctx context.Context, location string, req event.PageRequest) (*event.Page, error)
	SearchByDateRange(ctx context.Context, start, end time.Time, req event.PageRequest) (*event.Page, error)
}

// SearchMode は実際に適用される検索条件の種類
type SearchMode string

const (
	SearchByTitle     SearchMode = "title"
	SearchByLocation  SearchMode = "location"
	SearchByDateRange SearchMode = "dateRange"
	SearchAll         SearchMode = "all"
)

// SearchCriteria は検索条件（すべて任意）
type SearchCriteria struct {
	Title     string
	Location  string
	StartDate *time.Time
	EndDate   *time.Time
}

// Mode は適用する条件を1つだけ選ぶ
// 優先順位: タイトル → 場所 → 日付範囲（開始・終了の両方が必要） → 条件なし
// 複数指定されても組み合わせない
func (c SearchCriteria) Mode() SearchMode {
	switch {
	case c.Title != "":
		return SearchByTitle
	case c.Location != "":
		return SearchByLocation
	case c.StartDate != nil && c.EndDate != nil:
		return SearchByDateRange
	default:
		return SearchAll
	}
}

// QueryDispatcher は検索条件から読み取り操作を1つ選んで実行する
type QueryDispatcher struct {
	reader EventReader
}

func NewQueryDispatcher(reader EventReader) *QueryDispatcher {
	return &QueryDispatcher{reader: reader}
}

// Search は検索条件に応じたページを返す
func (d *QueryDispatcher) Search(ctx context.Context, criteria SearchCriteria, req event.PageRequest) (*event.Page, error) {
	mode := criteria.Mode()
	logger.Debug("イベント検索", zap.String("mode", string(mode)))

	switch mode {
	case SearchByTitle:
		return d.reader.SearchByTitle(ctx, criteria.Title, req)
	case SearchByLocation:
		return d.reader.SearchByLocation(ctx, criteria.Location, req)
	case SearchByDateRange:
		return d.reader.SearchByDateRange(ctx, *criteria.StartDate, *criteria.EndDate, req)
	default:
		return d.reader.ListEvents(ctx, req)
	}
}

var _ EventReader = (*EventService)(nil)
