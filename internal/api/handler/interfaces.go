package handler

import (
	"context"

	"github.com/sanosuguru/go-event-weather-manager/internal/application"
	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id int64) (*event.Event, error)
	ListEvents(ctx context.Context, req event.PageRequest) (*event.Page, error)
	UpdateEvent(ctx context.Context, input application.UpdateEventInput) (*event.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// EventSearcherInterface は検索条件に応じてイベントを検索する
type EventSearcherInterface interface {
	Search(ctx context.Context, criteria application.SearchCriteria, req event.PageRequest) (*event.Page, error)
}
