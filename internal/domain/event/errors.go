package event

import (
	"errors"
	"strings"
)

// Event ドメインのエラー定義
var (
	ErrEventNotFound       = errors.New("イベントが見つかりません")
	ErrTitleRequired       = errors.New("タイトルは必須です")
	ErrTitleTooLong        = errors.New("タイトルは255文字以内である必要があります")
	ErrDescriptionRequired = errors.New("説明は必須です")
	ErrLocationRequired    = errors.New("場所は必須です")
	ErrLocationTooLong     = errors.New("場所は100文字以内である必要があります")
	ErrStartDateRequired   = errors.New("開始日時は必須です")
	ErrEndDateRequired     = errors.New("終了日時は必須です")
	ErrInvalidSortField    = errors.New("ソート項目が不正です")
	ErrInvalidDirection    = errors.New("ソート方向はascまたはdescである必要があります")
)

// FieldError はフィールド単位の検証エラー
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError はフィールドエラーの一覧
type ValidationError []FieldError

func (v ValidationError) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "バリデーションエラー: " + strings.Join(msgs, ", ")
}
