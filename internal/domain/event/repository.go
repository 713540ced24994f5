package event

import (
	"context"
	"time"
)

// Repository はイベントリポジトリのインターフェース
// 一覧系は指定がなければ開始日時の降順で返す
type Repository interface {
	// FindByID はIDからイベントを取得する（存在しない場合 ErrEventNotFound）
	FindByID(ctx context.Context, id int64) (*Event, error)

	// FindAll はイベント一覧を取得する
	FindAll(ctx context.Context, req PageRequest) (*Page, error)

	// FindByTitleContaining はタイトルの部分一致（大文字小文字無視）で検索する
	FindByTitleContaining(ctx context.Context, title string, req PageRequest) (*Page, error)

	// FindByLocationContaining は場所の部分一致（大文字小文字無視）で検索する
	FindByLocationContaining(ctx context.Context, location string, req PageRequest) (*Page, error)

	// FindByStartDateBetween は開始日時が範囲内（両端含む）のイベントを検索する
	FindByStartDateBetween(ctx context.Context, start, end time.Time, req PageRequest) (*Page, error)

	// Save はIDが未設定なら作成、設定済みなら更新する
	Save(ctx context.Context, e *Event) (*Event, error)

	// ExistsByID はイベントの存在を確認する
	ExistsByID(ctx context.Context, id int64) (bool, error)

	// DeleteByID はイベントを削除する
	DeleteByID(ctx context.Context, id int64) error
}
