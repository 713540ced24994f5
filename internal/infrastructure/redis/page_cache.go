package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/cache"
)

// scanBatch はClear時のSCAN/DELの1回あたりの件数
const scanBatch = 500

// PageCache はイベントページのキャッシュをRedisで管理する
// 複数インスタンスでキャッシュと無効化を共有する場合に使用する
type PageCache struct {
	client *redis.Client
	prefix string
}

// NewPageCache は新しいPageCacheインスタンスを作成する
func NewPageCache(client *redis.Client, prefix string) *PageCache {
	return &PageCache{client: client, prefix: prefix}
}

// Get はキャッシュから値を取得する
func (c *PageCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// Set はキャッシュに値を保存する（TTLなし）
func (c *PageCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Clear はプレフィックス配下のキーをすべて削除する
func (c *PageCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *PageCache) key(key string) string {
	return c.prefix + ":" + key
}

var _ cache.Cache = (*PageCache)(nil)
