package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-weather-manager/internal/api"
	"github.com/sanosuguru/go-event-weather-manager/internal/application"
	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

// MockEventService はEventServiceInterfaceのモック
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) GetEvent(ctx context.Context, id int64) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) ListEvents(ctx context.Context, req event.PageRequest) (*event.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Page), args.Error(1)
}

func (m *MockEventService) UpdateEvent(ctx context.Context, input application.UpdateEventInput) (*event.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventService) DeleteEvent(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventSearcher はEventSearcherInterfaceのモック
type MockEventSearcher struct {
	mock.Mock
}

func (m *MockEventSearcher) Search(ctx context.Context, criteria application.SearchCriteria, req event.PageRequest) (*event.Page, error) {
	args := m.Called(ctx, criteria, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Page), args.Error(1)
}

func sampleEvent() *event.Event {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &event.Event{
		ID:          123,
		Title:       "Conf",
		Description: "Annual conference",
		Location:    "Madrid",
		StartDate:   time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC),
		WeatherData: "Temperature: 30.0°C, Feels like: 31.0°C, Humidity: 20%, Wind: 2.0 m/s, Conditions: clear sky",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

const validBody = `{
	"title": "Conf",
	"description": "Annual conference",
	"location": "Madrid",
	"startDate": "2025-07-01T09:00:00Z",
	"endDate": "2025-07-01T18:00:00Z"
}`

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func requireHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	require.Error(t, err)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, code, he.Code)
	return he
}

func validationFields(t *testing.T, he *echo.HTTPError) []string {
	t.Helper()
	var verr event.ValidationError
	require.True(t, errors.As(he, &verr))
	fields := make([]string, len(verr))
	for i, fe := range verr {
		fields[i] = fe.Field
	}
	return fields
}

func TestEventHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にイベントを作成できる", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("CreateEvent", mock.Anything, application.CreateEventInput{
			Title:       "Conf",
			Description: "Annual conference",
			Location:    "Madrid",
			StartDate:   time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC),
		}).Return(sampleEvent(), nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))
		c, rec := newJSONContext(e, http.MethodPost, "/events", validBody)

		err := handler.Create(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(123), resp.ID)
		assert.Equal(t, "Conf", resp.Title)
		assert.Contains(t, resp.WeatherData, "clear sky")
		assert.Equal(t, "2025-07-01T09:00:00Z", resp.StartDate)

		mockService.AssertExpectations(t)
	})

	t.Run("タイムゾーンなしの日時も受け付ける", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("CreateEvent", mock.Anything, mock.MatchedBy(func(in application.CreateEventInput) bool {
			return in.StartDate.Equal(time.Date(2025, 7, 1, 9, 0, 0, 0, time.Local))
		})).Return(sampleEvent(), nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))
		body := strings.NewReplacer("2025-07-01T09:00:00Z", "2025-07-01T09:00:00").Replace(validBody)
		c, rec := newJSONContext(e, http.MethodPost, "/events", body)

		require.NoError(t, handler.Create(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("不正なリクエスト形式でエラー", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))
		c, _ := newJSONContext(e, http.MethodPost, "/events", "invalid json")

		err := handler.Create(c)

		requireHTTPError(t, err, http.StatusBadRequest)
		mockService.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	})

	t.Run("必須項目が空白ならフィールドごとのエラー", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))
		c, _ := newJSONContext(e, http.MethodPost, "/events", `{"title": "   ", "description": "d"}`)

		err := handler.Create(c)

		he := requireHTTPError(t, err, http.StatusBadRequest)
		assert.ElementsMatch(t, []string{"title", "location", "startDate", "endDate"}, validationFields(t, he))
		mockService.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	})

	t.Run("場所が100文字を超えるとエラー", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))
		body := strings.Replace(validBody, `"Madrid"`, `"`+strings.Repeat("あ", 101)+`"`, 1)
		c, _ := newJSONContext(e, http.MethodPost, "/events", body)

		err := handler.Create(c)

		he := requireHTTPError(t, err, http.StatusBadRequest)
		assert.Equal(t, []string{"location"}, validationFields(t, he))
	})

	t.Run("タイトルが255文字を超えるとエラー", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))
		body := strings.Replace(validBody, `"Conf"`, `"`+strings.Repeat("a", 256)+`"`, 1)
		c, _ := newJSONContext(e, http.MethodPost, "/events", body)

		err := handler.Create(c)

		he := requireHTTPError(t, err, http.StatusBadRequest)
		assert.Equal(t, []string{"title"}, validationFields(t, he))
		mockService.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	})

	t.Run("不正な開始日時形式でエラー", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))
		body := strings.Replace(validBody, "2025-07-01T09:00:00Z", "invalid-date", 1)
		c, _ := newJSONContext(e, http.MethodPost, "/events", body)

		err := handler.Create(c)

		he := requireHTTPError(t, err, http.StatusBadRequest)
		assert.Equal(t, []string{"startDate"}, validationFields(t, he))
	})

	t.Run("サービスの検証エラーは400", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("CreateEvent", mock.Anything, mock.Anything).
			Return(nil, event.ValidationError{{Field: "title", Message: event.ErrTitleRequired.Error()}})

		handler := NewEventHandler(mockService, new(MockEventSearcher))
		c, _ := newJSONContext(e, http.MethodPost, "/events", validBody)

		err := handler.Create(c)

		he := requireHTTPError(t, err, http.StatusBadRequest)
		assert.Equal(t, []string{"title"}, validationFields(t, he))
	})

	t.Run("想定外のエラーはそのまま返す", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("CreateEvent", mock.Anything, mock.Anything).Return(nil, errors.New("db error"))

		handler := NewEventHandler(mockService, new(MockEventSearcher))
		c, _ := newJSONContext(e, http.MethodPost, "/events", validBody)

		err := handler.Create(c)

		require.Error(t, err)
		var he *echo.HTTPError
		assert.False(t, errors.As(err, &he))
	})
}

func TestEventHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にイベントを取得できる", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("GetEvent", mock.Anything, int64(123)).Return(sampleEvent(), nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events/123", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("123")

		err := handler.GetByID(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(123), resp.ID)
		assert.Equal(t, "Madrid", resp.Location)

		mockService.AssertExpectations(t)
	})

	t.Run("イベントが見つからない場合404", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("GetEvent", mock.Anything, int64(999)).Return(nil, event.ErrEventNotFound)

		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events/999", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("999")

		err := handler.GetByID(c)

		requireHTTPError(t, err, http.StatusNotFound)
	})

	t.Run("数値でないIDは400", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events/abc", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("abc")

		err := handler.GetByID(c)

		requireHTTPError(t, err, http.StatusBadRequest)
		mockService.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
	})
}

func TestEventHandler_List(t *testing.T) {
	e := NewTestEcho()

	t.Run("デフォルトのページ条件で一覧を取得できる", func(t *testing.T) {
		mockService := new(MockEventService)
		page := event.NewPage([]*event.Event{sampleEvent()}, 1, event.DefaultPageRequest())
		mockService.On("ListEvents", mock.Anything, event.DefaultPageRequest()).Return(page, nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.List(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp PageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Content, 1)
		assert.Equal(t, int64(1), resp.TotalElements)
		assert.Equal(t, 1, resp.TotalPages)
		assert.Equal(t, 0, resp.Number)
		assert.Equal(t, 10, resp.Size)

		mockService.AssertExpectations(t)
	})

	t.Run("ページ・ソート条件を渡す", func(t *testing.T) {
		mockService := new(MockEventService)
		want := event.PageRequest{Page: 2, Size: 5, SortBy: "title", Direction: event.Asc}
		mockService.On("ListEvents", mock.Anything, want).Return(event.NewPage(nil, 0, want), nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events?page=2&size=5&sortBy=title&direction=ASC", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.List(c))
		assert.Contains(t, rec.Body.String(), `"content":[]`)
		mockService.AssertExpectations(t)
	})

	t.Run("不正なソート項目は400", func(t *testing.T) {
		mockService := new(MockEventService)
		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events?sortBy=weatherData", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		requireHTTPError(t, handler.List(c), http.StatusBadRequest)
		mockService.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything)
	})

	t.Run("整数でないページ番号は400", func(t *testing.T) {
		handler := NewEventHandler(new(MockEventService), new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodGet, "/events?page=first", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		requireHTTPError(t, handler.List(c), http.StatusBadRequest)
	})
}

func TestEventHandler_Search(t *testing.T) {
	e := NewTestEcho()
	empty := event.NewPage(nil, 0, event.DefaultPageRequest())

	t.Run("クエリ条件をそのまま渡す", func(t *testing.T) {
		searcher := new(MockEventSearcher)
		searcher.On("Search", mock.Anything, application.SearchCriteria{Title: "conf", Location: "Madrid"}, event.DefaultPageRequest()).
			Return(empty, nil)

		handler := NewEventHandler(new(MockEventService), searcher)

		req := httptest.NewRequest(http.MethodGet, "/events/search?title=conf&location=Madrid", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.Search(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		searcher.AssertExpectations(t)
	})

	t.Run("日付範囲を解釈する", func(t *testing.T) {
		searcher := new(MockEventSearcher)
		searcher.On("Search", mock.Anything, mock.MatchedBy(func(c application.SearchCriteria) bool {
			return c.StartDate != nil && c.EndDate != nil &&
				c.StartDate.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) &&
				c.EndDate.Equal(time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC))
		}), mock.Anything).Return(empty, nil)

		handler := NewEventHandler(new(MockEventService), searcher)

		req := httptest.NewRequest(http.MethodGet, "/events/search?startDate=2025-07-01T00:00:00Z&endDate=2025-07-31T00:00:00Z", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, handler.Search(c))
		searcher.AssertExpectations(t)
	})

	t.Run("不正な日付は400", func(t *testing.T) {
		searcher := new(MockEventSearcher)
		handler := NewEventHandler(new(MockEventService), searcher)

		req := httptest.NewRequest(http.MethodGet, "/events/search?startDate=yesterday", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		he := requireHTTPError(t, handler.Search(c), http.StatusBadRequest)
		assert.Equal(t, []string{"startDate"}, validationFields(t, he))
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEventHandler_Delete(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にイベントを削除できる", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("DeleteEvent", mock.Anything, int64(123)).Return(nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodDelete, "/events/123", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("123")

		err := handler.Delete(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("イベントが見つからない場合404", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("DeleteEvent", mock.Anything, int64(999)).Return(event.ErrEventNotFound)

		handler := NewEventHandler(mockService, new(MockEventSearcher))

		req := httptest.NewRequest(http.MethodDelete, "/events/999", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("999")

		requireHTTPError(t, handler.Delete(c), http.StatusNotFound)
	})
}

func TestEventHandler_Update(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にイベントを更新できる", func(t *testing.T) {
		mockService := new(MockEventService)
		updated := sampleEvent()
		updated.Location = "Paris"
		mockService.On("UpdateEvent", mock.Anything, mock.MatchedBy(func(in application.UpdateEventInput) bool {
			return in.ID == 123 && in.Location == "Paris"
		})).Return(updated, nil)

		handler := NewEventHandler(mockService, new(MockEventSearcher))
		body := strings.Replace(validBody, "Madrid", "Paris", 1)
		c, rec := newJSONContext(e, http.MethodPut, "/events/123", body)
		c.SetParamNames("id")
		c.SetParamValues("123")

		err := handler.Update(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"location":"Paris"`)
		mockService.AssertExpectations(t)
	})

	t.Run("イベントが見つからない場合404", func(t *testing.T) {
		mockService := new(MockEventService)
		mockService.On("UpdateEvent", mock.Anything, mock.Anything).Return(nil, event.ErrEventNotFound)

		handler := NewEventHandler(mockService, new(MockEventSearcher))
		c, _ := newJSONContext(e, http.MethodPut, "/events/999", validBody)
		c.SetParamNames("id")
		c.SetParamValues("999")

		requireHTTPError(t, handler.Update(c), http.StatusNotFound)
	})
}

func TestEventHandler_ErrorResponse(t *testing.T) {
	e := NewTestEcho()
	mockService := new(MockEventService)
	handler := NewEventHandler(mockService, new(MockEventSearcher))
	e.POST("/events", handler.Create)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"title":"Conf"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, api.ValidationFailedMessage, resp.Error)
	require.NotEmpty(t, resp.Fields)
	for _, fe := range resp.Fields {
		assert.NotEmpty(t, fe.Message)
	}
}
