package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sanosuguru/go-event-weather-manager/internal/api/handler"
	"github.com/sanosuguru/go-event-weather-manager/internal/api/router"
	"github.com/sanosuguru/go-event-weather-manager/internal/application"
	"github.com/sanosuguru/go-event-weather-manager/internal/config"
	"github.com/sanosuguru/go-event-weather-manager/internal/infrastructure/memory"
	"github.com/sanosuguru/go-event-weather-manager/internal/infrastructure/weather"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/metrics"
)

// fakeWeatherAPI はOpenWeatherMap互換のテスト用サーバー
type fakeWeatherAPI struct {
	mu    sync.Mutex
	calls []string
	data  map[string]string
}

func newFakeWeatherAPI() *fakeWeatherAPI {
	return &fakeWeatherAPI{data: map[string]string{
		"Madrid":  `{"main":{"temp":30.04,"feels_like":31.2,"humidity":20},"wind":{"speed":2.1},"weather":[{"description":"clear sky"}]}`,
		"Paris":   `{"main":{"temp":18.5,"feels_like":18.0,"humidity":70},"wind":{"speed":4.1},"weather":[{"description":"light rain"}]}`,
		"Tokyo":   `{"main":{"temp":25.0,"feels_like":26.0,"humidity":60},"wind":{"speed":3.0},"weather":[{"description":"few clouds"}]}`,
		"Nowhere": `{"main":{"temp":1.0,"feels_like":1.0,"humidity":1},"weather":[]}`,
	}}
}

func (f *fakeWeatherAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	f.mu.Lock()
	f.calls = append(f.calls, q)
	body, ok := f.data[q]
	f.mu.Unlock()

	if !ok {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func (f *fakeWeatherAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo    *echo.Echo
	Weather *fakeWeatherAPI
	Service *application.EventService
}

// NewTestServer はインメモリのストア・キャッシュでテスト用サーバーを作成
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	fake := newFakeWeatherAPI()
	weatherServer := httptest.NewServer(fake)
	t.Cleanup(weatherServer.Close)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	weatherClient := weather.NewClient(&config.WeatherConfig{
		BaseURL: weatherServer.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, m)

	service := application.NewEventService(memory.NewEventRepository(), weatherClient, memory.NewPageCache(), m)

	e := router.New(router.Handlers{
		Event:  handler.NewEventHandler(service, application.NewQueryDispatcher(service)),
		Health: handler.NewHealthHandler(),
	}, router.Options{Metrics: m, Gatherer: reg})

	return &TestServer{Echo: e, Weather: fake, Service: service}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}
