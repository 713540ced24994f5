package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/logger"
)

// CacheInvalidator はキャッシュ全体を無効化するインターフェース
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// CacheFlusher は一定間隔でページキャッシュ全体を無効化するワーカー
// 複数インスタンスが同じストアに書き込み、キャッシュをインスタンスごとに持つ場合の鮮度の上限になる
type CacheFlusher struct {
	invalidator CacheInvalidator
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewCacheFlusher は新しいフラッシャーを作成
func NewCacheFlusher(invalidator CacheInvalidator, interval time.Duration) *CacheFlusher {
	return &CacheFlusher{
		invalidator: invalidator,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start はフラッシャーを開始
func (f *CacheFlusher) Start(ctx context.Context) {
	logger.Info("キャッシュフラッシャー開始", zap.Duration("interval", f.interval))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer close(f.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("キャッシュフラッシャー停止（コンテキストキャンセル）")
			return
		case <-f.stopCh:
			logger.Info("キャッシュフラッシャー停止（シグナル受信）")
			return
		case <-ticker.C:
			f.flush(ctx)
		}
	}
}

// Stop はフラッシャーを停止
func (f *CacheFlusher) Stop() {
	close(f.stopCh)
	<-f.doneCh
}

func (f *CacheFlusher) flush(ctx context.Context) {
	logger.Debug("定期キャッシュ無効化")
	f.invalidator.InvalidateCache(ctx)
}
