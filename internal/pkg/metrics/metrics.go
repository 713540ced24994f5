package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// ページキャッシュの参照結果（namespace: all/title/location/date/id, result: hit/miss/error）
	CacheLookupsTotal *prometheus.CounterVec

	// キャッシュ全削除の回数（operation: create/update/delete）
	CacheInvalidationsTotal *prometheus.CounterVec

	// 天気APIの取得結果（result: success/unavailable/error）
	WeatherFetchTotal *prometheus.CounterVec

	// 天気APIの呼び出し時間
	WeatherFetchDuration prometheus.Histogram
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_cache_lookups_total",
				Help: "Total number of event page cache lookups",
			},
			[]string{"namespace", "result"},
		),
		CacheInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_cache_invalidations_total",
				Help: "Total number of full event cache invalidations",
			},
			[]string{"operation"},
		),
		WeatherFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_fetch_total",
				Help: "Total number of weather provider lookups",
			},
			[]string{"result"},
		),
		WeatherFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "weather_fetch_duration_seconds",
				Help:    "Weather provider call latency in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheLookupsTotal,
		m.CacheInvalidationsTotal,
		m.WeatherFetchTotal,
		m.WeatherFetchDuration,
	)

	return m
}

// ObserveCacheLookup はキャッシュ参照結果を記録する（nilの場合は何もしない）
func (m *Metrics) ObserveCacheLookup(namespace, result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// ObserveCacheInvalidation はキャッシュ全削除を記録する
func (m *Metrics) ObserveCacheInvalidation(operation string) {
	if m == nil {
		return
	}
	m.CacheInvalidationsTotal.WithLabelValues(operation).Inc()
}

// ObserveWeatherFetch は天気API呼び出しの結果と所要時間を記録する
func (m *Metrics) ObserveWeatherFetch(result string, seconds float64) {
	if m == nil {
		return
	}
	m.WeatherFetchTotal.WithLabelValues(result).Inc()
	m.WeatherFetchDuration.Observe(seconds)
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
