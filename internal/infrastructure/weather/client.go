package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-weather-manager/internal/config"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/logger"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/metrics"
)

const (
	// UnavailablePrefix はプロバイダが必要な項目を返さなかった場合のプレフィックス
	UnavailablePrefix = "Weather data unavailable for "
	// ErrorPrefix はプロバイダ呼び出しが失敗した場合のプレフィックス
	ErrorPrefix = "Error fetching weather data for "

	summaryFormat = "Temperature: %.1f°C, Feels like: %.1f°C, Humidity: %d%%, Wind: %.1f m/s, Conditions: %s"

	// レスポンスボディの読み込み上限
	maxBodyBytes = 1 << 20
)

// response は天気APIのレスポンス（必要な項目のみ）
// 必須項目の欠落を判別するためポインタで受ける
type response struct {
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *int     `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// summary は必須項目がそろっていれば要約文字列を返す
func (r *response) summary() (string, bool) {
	if r.Main == nil || r.Main.Temp == nil || r.Main.FeelsLike == nil || r.Main.Humidity == nil {
		return "", false
	}
	if len(r.Weather) == 0 || r.Weather[0].Description == "" {
		return "", false
	}
	var wind float64
	if r.Wind != nil {
		wind = r.Wind.Speed
	}
	return fmt.Sprintf(summaryFormat, *r.Main.Temp, *r.Main.FeelsLike, *r.Main.Humidity, wind, r.Weather[0].Description), true
}

// Client は天気APIのHTTPクライアント
// Fetch は失敗時もエラーを返さず、説明文字列に変換する
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewClient は新しいClientを作成する
func NewClient(cfg *config.WeatherConfig, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    m,
	}
}

// Fetch は場所の天気要約を返す
func (c *Client) Fetch(ctx context.Context, location string) string {
	start := time.Now()

	result, err := c.fetch(ctx, location)
	switch {
	case err != nil:
		logger.Warn("天気情報の取得に失敗しました",
			zap.String("location", location),
			zap.Error(err),
		)
		c.metrics.ObserveWeatherFetch("error", time.Since(start).Seconds())
		return ErrorPrefix + location + ": " + err.Error()
	case result == "":
		logger.Warn("天気情報が不完全です", zap.String("location", location))
		c.metrics.ObserveWeatherFetch("unavailable", time.Since(start).Seconds())
		return UnavailablePrefix + location
	default:
		c.metrics.ObserveWeatherFetch("success", time.Since(start).Seconds())
		return result
	}
}

// fetch はAPIを呼び出し、必須項目が欠けている場合は空文字を返す
func (c *Client) fetch(ctx context.Context, location string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", redactKey(err, c.apiKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("レスポンスの解析に失敗: %w", err)
	}

	s, ok := body.summary()
	if !ok {
		return "", nil
	}
	return s, nil
}

// redactKey はエラーメッセージ中のURLに含まれるAPIキーを伏せる
// 失敗時の文字列はそのままweatherDataに保存される
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED"))
}

// IsDegraded は天気情報が取得失敗時のプレースホルダかどうかを返す
func IsDegraded(s string) bool {
	return s == "" || strings.HasPrefix(s, UnavailablePrefix) || strings.HasPrefix(s, ErrorPrefix)
}
