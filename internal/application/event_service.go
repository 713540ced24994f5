package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/cache"
	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/logger"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/metrics"
)

// sharedLoadTimeout は複数の呼び出し元で共有する読み込みの上限時間
const sharedLoadTimeout = 30 * time.Second

// WeatherFetcher は場所から天気の要約を取得する
// 失敗時もエラーは返さず、プレースホルダ文字列を返す
type WeatherFetcher interface {
	Fetch(ctx context.Context, location string) string
}

// EventService はイベントの永続化・天気情報の付与・読み取りキャッシュを管理する
//
// 読み取りは名前空間ごとのキーでキャッシュし、書き込み（作成・更新・削除）が
// 成功するたびにキャッシュ全体を削除する。
type EventService struct {
	eventRepo event.Repository
	weather   WeatherFetcher
	cache     cache.Cache
	metrics   *metrics.Metrics

	loads singleflight.Group
	// generation は無効化のたびに進み、無効化前に始まった読み込み結果の保存を防ぐ
	generation atomic.Uint64
}

// NewEventService は新しいEventServiceを作成する（cache, m はnil可）
func NewEventService(eventRepo event.Repository, weather WeatherFetcher, c cache.Cache, m *metrics.Metrics) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		weather:   weather,
		cache:     c,
		metrics:   m,
	}
}

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time
}

type UpdateEventInput struct {
	ID          int64
	Title       string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time
}

func (s *EventService) ListEvents(ctx context.Context, req event.PageRequest) (*event.Page, error) {
	return loadCached(ctx, s, namespaceAll, pageKey(namespaceAll, req), func(ctx context.Context) (*event.Page, error) {
		return s.eventRepo.FindAll(ctx, req)
	})
}

func (s *EventService) SearchByTitle(ctx context.Context, title string, req event.PageRequest) (*event.Page, error) {
	return loadCached(ctx, s, namespaceTitle, pageKey(namespaceTitle, req, title), func(ctx context.Context) (*event.Page, error) {
		return s.eventRepo.FindByTitleContaining(ctx, title, req)
	})
}

func (s *EventService) SearchByLocation(ctx context.Context, location string, req event.PageRequest) (*event.Page, error) {
	return loadCached(ctx, s, namespaceLocation, pageKey(namespaceLocation, req, location), func(ctx context.Context) (*event.Page, error) {
		return s.eventRepo.FindByLocationContaining(ctx, location, req)
	})
}

func (s *EventService) SearchByDateRange(ctx context.Context, start, end time.Time, req event.PageRequest) (*event.Page, error) {
	key := pageKey(namespaceDate, req, dateArg(start), dateArg(end))
	return loadCached(ctx, s, namespaceDate, key, func(ctx context.Context) (*event.Page, error) {
		return s.eventRepo.FindByStartDateBetween(ctx, start, end, req)
	})
}

// GetEvent はイベントを取得する（存在しない場合 event.ErrEventNotFound）
func (s *EventService) GetEvent(ctx context.Context, id int64) (*event.Event, error) {
	return loadCached(ctx, s, namespaceID, idKey(id), func(ctx context.Context) (*event.Event, error) {
		return s.eventRepo.FindByID(ctx, id)
	})
}

// CreateEvent は場所の天気情報を付与してイベントを作成する
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	e := event.NewEvent(input.Title, input.Description, input.Location, input.StartDate, input.EndDate)
	if err := e.Validate(); err != nil {
		return nil, err
	}

	e.WeatherData = s.weather.Fetch(ctx, e.Location)

	saved, err := s.eventRepo.Save(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}

	s.invalidate(ctx, "create")
	logger.Info("イベントを作成しました", zap.Int64("event_id", saved.ID), zap.String("location", saved.Location))
	return saved, nil
}

// UpdateEvent はイベントを更新する
// 天気情報は場所が変わった場合のみ再取得し、それ以外は既存の値を維持する
func (s *EventService) UpdateEvent(ctx context.Context, input UpdateEventInput) (*event.Event, error) {
	e, err := s.GetEvent(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	locationChanged := e.LocationChanged(input.Location)

	e.Title = input.Title
	e.Description = input.Description
	e.StartDate = input.StartDate
	e.EndDate = input.EndDate
	e.Location = input.Location
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if locationChanged {
		e.WeatherData = s.weather.Fetch(ctx, e.Location)
	}

	saved, err := s.eventRepo.Save(ctx, e)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("イベント更新に失敗しました: %w", err)
	}

	s.invalidate(ctx, "update")
	logger.Info("イベントを更新しました",
		zap.Int64("event_id", saved.ID),
		zap.Bool("weather_refreshed", locationChanged),
	)
	return saved, nil
}

// DeleteEvent はイベントを削除する（存在しない場合 event.ErrEventNotFound）
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	exists, err := s.eventRepo.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("イベント存在確認に失敗しました: %w", err)
	}
	if !exists {
		return event.ErrEventNotFound
	}

	if err := s.eventRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return err
		}
		return fmt.Errorf("イベント削除に失敗しました: %w", err)
	}

	s.invalidate(ctx, "delete")
	logger.Info("イベントを削除しました", zap.Int64("event_id", id))
	return nil
}

// InvalidateCache はキャッシュ全体を削除する
func (s *EventService) InvalidateCache(ctx context.Context) {
	s.invalidate(ctx, "manual")
}

func (s *EventService) invalidate(ctx context.Context, operation string) {
	s.generation.Add(1)
	s.metrics.ObserveCacheInvalidation(operation)
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("operation", operation), zap.Error(err))
	}
}

// loadCached はキャッシュを確認し、なければloadの結果をキャッシュして返す
// 値はJSONのスナップショットとして保持し、呼び出し元ごとに新しいコピーを返す
func loadCached[T any](ctx context.Context, s *EventService, namespace, key string, load func(context.Context) (T, error)) (T, error) {
	var out T

	if data, ok := s.lookup(ctx, namespace, key); ok {
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		logger.Warn("キャッシュの復元に失敗しました", zap.String("key", key))
	}

	gen := s.generation.Load()
	// 無効化を跨いで古い読み込みに合流しないよう世代をキーに含める
	// 共有の読み込みは呼び出し元のキャンセルを引き継がず、待機だけを各自のctxで打ち切る
	ch := s.loads.DoChan(key+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("キャッシュ用のシリアライズに失敗しました: %w", err)
		}
		s.store(loadCtx, key, data, gen)
		return data, nil
	})

	var v interface{}
	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return out, res.Err
		}
		v = res.Val
	}

	if err := json.Unmarshal(v.([]byte), &out); err != nil {
		return out, fmt.Errorf("キャッシュ用のデシリアライズに失敗しました: %w", err)
	}
	return out, nil
}

func (s *EventService) lookup(ctx context.Context, namespace, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.ObserveCacheLookup(namespace, "hit")
		logger.Debug("キャッシュヒット", zap.String("key", key))
		return data, true
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.ObserveCacheLookup(namespace, "miss")
	default:
		s.metrics.ObserveCacheLookup(namespace, "error")
		logger.Warn("キャッシュ取得エラー", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

func (s *EventService) store(ctx context.Context, key string, data []byte, gen uint64) {
	if s.cache == nil || s.generation.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		logger.Warn("キャッシュ保存エラー", zap.String("key", key), zap.Error(err))
	}
}
