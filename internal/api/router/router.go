package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-event-weather-manager/internal/api"
	"github.com/sanosuguru/go-event-weather-manager/internal/api/handler"
	"github.com/sanosuguru/go-event-weather-manager/internal/api/middleware"
	"github.com/sanosuguru/go-event-weather-manager/internal/config"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/metrics"
)

// Handlers はルーティング対象のハンドラー
type Handlers struct {
	Event  *handler.EventHandler
	Health *handler.HealthHandler
}

// Options はメトリクス関連の設定（Metrics が nil の場合 /metrics は公開しない）
type Options struct {
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	MetricsAuth *config.MetricsConfig
}

// New はミドルウェアとルートを設定したEchoインスタンスを作成する
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)

	if opts.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(opts.Metrics))

		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
			middleware.MetricsBasicAuth(opts.MetricsAuth))
	}

	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/events", h.Event.List)
	v1.GET("/events/search", h.Event.Search)
	v1.GET("/events/:id", h.Event.GetByID)
	v1.POST("/events", h.Event.Create)
	v1.PUT("/events/:id", h.Event.Update)
	v1.DELETE("/events/:id", h.Event.Delete)

	return e
}
