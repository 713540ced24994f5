package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("キャッシュが見つかりません")

// Cache はページ単位の読み取りキャッシュを表すインターフェース
// ドメイン層がインフラ層（Redis等）に依存しないようにするための抽象化
// 値はシリアライズ済みのスナップショットで、TTLは持たない
type Cache interface {
	// Get はキーに対応する値を返す（存在しない場合 ErrCacheMiss）
	Get(ctx context.Context, key string) ([]byte, error)
	// Set は値を保存する
	Set(ctx context.Context, key string, value []byte) error
	// Clear はすべてのエントリを削除する
	Clear(ctx context.Context) error
}
