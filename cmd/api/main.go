package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-weather-manager/internal/api/handler"
	"github.com/sanosuguru/go-event-weather-manager/internal/api/router"
	"github.com/sanosuguru/go-event-weather-manager/internal/application"
	"github.com/sanosuguru/go-event-weather-manager/internal/config"
	"github.com/sanosuguru/go-event-weather-manager/internal/domain/cache"
	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
	"github.com/sanosuguru/go-event-weather-manager/internal/infrastructure/memory"
	"github.com/sanosuguru/go-event-weather-manager/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-event-weather-manager/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-weather-manager/internal/infrastructure/weather"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/logger"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/metrics"
	"github.com/sanosuguru/go-event-weather-manager/internal/worker"
)

func main() {
	// .env は任意（存在しなければ環境変数のみ）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.App.Env)
	defer func() { _ = logger.Sync() }()

	m := metrics.Init()

	var healthChecks []handler.HealthCheck

	// イベントストア
	eventRepo, db, err := openStore(cfg)
	if err != nil {
		logger.Fatal("イベントストアの初期化に失敗しました", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name: "database",
			Ping: func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		})
	}

	// ページキャッシュ
	pageCache, rc, err := openCache(cfg)
	if err != nil {
		logger.Fatal("キャッシュの初期化に失敗しました", zap.Error(err))
	}
	if rc != nil {
		defer rc.Close()
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name: "cache",
			Ping: func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) },
		})
	}

	if cfg.Weather.APIKey == "" {
		logger.Warn("WEATHER_API_KEY が未設定です。天気情報はエラー文字列として保存されます")
	}
	weatherClient := weather.NewClient(&cfg.Weather, m)

	eventService := application.NewEventService(eventRepo, weatherClient, pageCache, m)
	dispatcher := application.NewQueryDispatcher(eventService)

	e := router.New(router.Handlers{
		Event:  handler.NewEventHandler(eventService, dispatcher),
		Health: handler.NewHealthHandler(healthChecks...),
	}, router.Options{
		Metrics:     m,
		MetricsAuth: &cfg.Metrics,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var flusher *worker.CacheFlusher
	if cfg.Cache.FlushInterval > 0 {
		flusher = worker.NewCacheFlusher(eventService, cfg.Cache.FlushInterval)
		go flusher.Start(ctx)
	}

	// サーバー起動
	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.App.StoreBackend),
			zap.String("cache", cfg.Cache.Backend),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	if flusher != nil {
		flusher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

// openStore は設定に応じたイベントストアを返す（Postgresの場合は接続も返す）
func openStore(cfg *config.Config) (event.Repository, *sqlx.DB, error) {
	switch cfg.App.StoreBackend {
	case config.StoreBackendMemory:
		logger.Warn("インメモリストアを使用します。再起動でデータは失われます")
		return memory.NewEventRepository(), nil, nil
	case config.StoreBackendPostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(db.DB, cfg.App.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewEventRepository(db), db, nil
	default:
		return nil, nil, errors.New("未対応のSTORE_BACKENDです: " + cfg.App.StoreBackend)
	}
}

// openCache は設定に応じたページキャッシュを返す（Redisの場合はクライアントも返す）
func openCache(cfg *config.Config) (cache.Cache, *goredis.Client, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return memory.NewPageCache(), nil, nil
	case config.CacheBackendRedis:
		rc, err := redisinfra.NewClient(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewPageCache(rc, cfg.Cache.KeyPrefix), rc, nil
	default:
		return nil, nil, errors.New("未対応のCACHE_BACKENDです: " + cfg.Cache.Backend)
	}
}
