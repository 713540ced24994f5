package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
	"github.com/sanosuguru/go-event-weather-manager/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error  string             `json:"error"`
	Code   int                `json:"code,omitempty"`
	Fields []event.FieldError `json:"fields,omitempty"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message = "内部サーバーエラー"
		fields  []event.FieldError
	)

	var he *echo.HTTPError
	var verr event.ValidationError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	case errors.Is(err, event.ErrEventNotFound):
		code = http.StatusNotFound
		message = event.ErrEventNotFound.Error()
	}
	// HTTPErrorのInternalに入っている場合も含めて取り出す
	if errors.As(err, &verr) {
		code = http.StatusBadRequest
		if he == nil {
			message = ValidationFailedMessage
		}
		fields = verr
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			logger.Error("エラーレスポンス送信失敗", zap.Error(err))
		}
		return
	}

	// JSONレスポンスを返す
	if err := c.JSON(code, ErrorResponse{
		Error:  message,
		Code:   code,
		Fields: fields,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
