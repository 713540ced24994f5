package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

// ValidationFailedMessage は検証エラー時のメッセージ
const ValidationFailedMessage = "バリデーションエラー"

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
// フィールド名はjsonタグの名前で報告する
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// 空白のみの文字列も未入力として扱う
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
// 失敗時は400のHTTPErrorを返し、Internalにフィールドごとのエラーを持たせる
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields := make(event.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, event.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return NewValidationHTTPError(fields)
}

// NewValidationHTTPError はフィールドエラーを持つ400エラーを作成する
func NewValidationHTTPError(fields event.ValidationError) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, ValidationFailedMessage).SetInternal(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%sは必須です", fe.Field())
	case "max":
		return fmt.Sprintf("%sは%s文字以内である必要があります", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%sが不正です", fe.Field())
	}
}
