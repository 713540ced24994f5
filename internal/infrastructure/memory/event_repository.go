package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

// EventRepository はイベントリポジトリのインメモリ実装
// ローカル開発と結合テストで使用する
type EventRepository struct {
	mu     sync.RWMutex
	events map[int64]*event.Event
	nextID int64
	now    func() time.Time
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository() *EventRepository {
	return &EventRepository{
		events: make(map[int64]*event.Event),
		nextID: 1,
		now:    time.Now,
	}
}

// FindByID はIDからイベントを取得する
func (r *EventRepository) FindByID(_ context.Context, id int64) (*event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	return e.Clone(), nil
}

// FindAll はイベント一覧を取得する
func (r *EventRepository) FindAll(_ context.Context, req event.PageRequest) (*event.Page, error) {
	return r.query(req, func(*event.Event) bool { return true }), nil
}

// FindByTitleContaining はタイトルの部分一致で検索する
func (r *EventRepository) FindByTitleContaining(_ context.Context, title string, req event.PageRequest) (*event.Page, error) {
	needle := strings.ToLower(title)
	return r.query(req, func(e *event.Event) bool {
		return strings.Contains(strings.ToLower(e.Title), needle)
	}), nil
}

// FindByLocationContaining は場所の部分一致で検索する
func (r *EventRepository) FindByLocationContaining(_ context.Context, location string, req event.PageRequest) (*event.Page, error) {
	needle := strings.ToLower(location)
	return r.query(req, func(e *event.Event) bool {
		return strings.Contains(strings.ToLower(e.Location), needle)
	}), nil
}

// FindByStartDateBetween は開始日時の範囲で検索する（両端含む）
func (r *EventRepository) FindByStartDateBetween(_ context.Context, start, end time.Time, req event.PageRequest) (*event.Page, error) {
	return r.query(req, func(e *event.Event) bool {
		return !e.StartDate.Before(start) && !e.StartDate.After(end)
	}), nil
}

// Save はイベントを作成または更新する
func (r *EventRepository) Save(_ context.Context, e *event.Event) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stored := e.Clone()
	if stored.IsNew() {
		stored.ID = r.nextID
		r.nextID++
		stored.CreatedAt = now
		stored.UpdatedAt = now
	} else {
		current, ok := r.events[stored.ID]
		if !ok {
			return nil, event.ErrEventNotFound
		}
		stored.CreatedAt = current.CreatedAt
		stored.UpdatedAt = now
	}
	r.events[stored.ID] = stored
	return stored.Clone(), nil
}

// ExistsByID はイベントの存在を確認する
func (r *EventRepository) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.events[id]
	return ok, nil
}

// DeleteByID はイベントを削除する
func (r *EventRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return event.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *EventRepository) query(req event.PageRequest, match func(*event.Event) bool) *event.Page {
	r.mu.RLock()
	matched := make([]*event.Event, 0, len(r.events))
	for _, e := range r.events {
		if match(e) {
			matched = append(matched, e.Clone())
		}
	}
	r.mu.RUnlock()

	sortEvents(matched, req)

	total := int64(len(matched))
	from := req.Offset()
	if from < 0 || from > len(matched) {
		from = len(matched)
	}
	to := from + req.Size
	if to > len(matched) {
		to = len(matched)
	}
	return event.NewPage(matched[from:to], total, req)
}

func sortEvents(events []*event.Event, req event.PageRequest) {
	compare := func(a, b *event.Event) int {
		switch req.SortBy {
		case "id":
			return compareInt64(a.ID, b.ID)
		case "title":
			return strings.Compare(a.Title, b.Title)
		case "location":
			return strings.Compare(a.Location, b.Location)
		case "endDate":
			return a.EndDate.Compare(b.EndDate)
		case "createdAt":
			return a.CreatedAt.Compare(b.CreatedAt)
		case "updatedAt":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.StartDate.Compare(b.StartDate)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		c := compare(events[i], events[j])
		if c == 0 {
			// 同値の場合はIDで順序を安定させる
			c = compareInt64(events[i].ID, events[j].ID)
		}
		if req.Direction == event.Asc {
			return c < 0
		}
		return c > 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var _ event.Repository = (*EventRepository)(nil)
