package memory

import (
	"context"
	"sync"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/cache"
)

// PageCache はプロセス内のキャッシュ実装
type PageCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewPageCache は新しいPageCacheを作成する
func NewPageCache() *PageCache {
	return &PageCache{entries: make(map[string][]byte)}
}

// Get はキャッシュから値を取得する
func (c *PageCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set はキャッシュに値を保存する
func (c *PageCache) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return nil
}

// Clear はすべてのエントリを削除する
func (c *PageCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
	return nil
}

// Len は保持しているエントリ数を返す
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ cache.Cache = (*PageCache)(nil)
