package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-weather-manager/internal/api"
	"github.com/sanosuguru/go-event-weather-manager/internal/application"
	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

// localDateTimeLayout はタイムゾーンなしの日時（サーバーのローカル時刻として解釈）
const localDateTimeLayout = "2006-01-02T15:04:05"

type EventHandler struct {
	eventService EventServiceInterface
	searcher     EventSearcherInterface
}

func NewEventHandler(eventService EventServiceInterface, searcher EventSearcherInterface) *EventHandler {
	return &EventHandler{eventService: eventService, searcher: searcher}
}

// EventRequest は作成・更新共通のリクエスト
// id・weatherData・タイムスタンプは受け付けない
type EventRequest struct {
	Title       string `json:"title" validate:"notblank,max=255" example:"Conf"`
	Description string `json:"description" validate:"notblank" example:"Annual conference"`
	Location    string `json:"location" validate:"notblank,max=100" example:"Madrid"`
	StartDate   string `json:"startDate" validate:"notblank" example:"2025-07-01T09:00:00+02:00"`
	EndDate     string `json:"endDate" validate:"notblank" example:"2025-07-01T18:00:00+02:00"`
}

type EventResponse struct {
	ID          int64  `json:"id" example:"1"`
	Title       string `json:"title" example:"Conf"`
	Description string `json:"description" example:"Annual conference"`
	Location    string `json:"location" example:"Madrid"`
	StartDate   string `json:"startDate" example:"2025-07-01T09:00:00+02:00"`
	EndDate     string `json:"endDate" example:"2025-07-01T18:00:00+02:00"`
	WeatherData string `json:"weatherData" example:"Temperature: 30.0°C, Feels like: 31.0°C, Humidity: 20%, Wind: 2.0 m/s, Conditions: clear sky"`
	CreatedAt   string `json:"createdAt" example:"2025-06-01T10:00:00Z"`
	UpdatedAt   string `json:"updatedAt" example:"2025-06-01T10:00:00Z"`
}

type PageResponse struct {
	Content       []*EventResponse `json:"content"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	Number        int              `json:"number"`
	Size          int              `json:"size"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartDate:   e.StartDate.Format(time.RFC3339),
		EndDate:     e.EndDate.Format(time.RFC3339),
		WeatherData: e.WeatherData,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

func toPageResponse(p *event.Page) *PageResponse {
	content := make([]*EventResponse, len(p.Content))
	for i, e := range p.Content {
		content[i] = toEventResponse(e)
	}
	return &PageResponse{
		Content:       content,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Number:        p.Number,
		Size:          p.Size,
	}
}

// Create godoc
// @Summary イベントを作成
// @Description 場所の天気情報を付与して新しいイベントを作成します
// @Tags events
// @Accept json
// @Produce json
// @Param request body EventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	req, start, end, err := bindEventRequest(c)
	if err != nil {
		return err
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Description 指定IDのイベントを取得します
// @Tags events
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	e, err := h.eventService.GetEvent(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary イベント一覧を取得
// @Description イベントの一覧をページ単位で取得します
// @Tags events
// @Produce json
// @Param page query int false "ページ番号" default(0)
// @Param size query int false "ページサイズ" default(10)
// @Param sortBy query string false "ソート項目" default(startDate)
// @Param direction query string false "ソート方向" default(desc)
// @Success 200 {object} PageResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	pageReq, err := parsePageRequest(c)
	if err != nil {
		return err
	}

	page, err := h.eventService.ListEvents(c.Request().Context(), pageReq)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPageResponse(page))
}

// Search godoc
// @Summary イベントを検索
// @Description タイトル・場所・開始日時の範囲のいずれか1つで検索します（優先順位: タイトル → 場所 → 日付範囲）
// @Tags events
// @Produce json
// @Param title query string false "タイトル（部分一致）"
// @Param location query string false "場所（部分一致）"
// @Param startDate query string false "開始日時の下限"
// @Param endDate query string false "開始日時の上限"
// @Param page query int false "ページ番号" default(0)
// @Param size query int false "ページサイズ" default(10)
// @Success 200 {object} PageResponse
// @Router /events/search [get]
func (h *EventHandler) Search(c echo.Context) error {
	pageReq, err := parsePageRequest(c)
	if err != nil {
		return err
	}

	criteria := application.SearchCriteria{
		Title:    c.QueryParam("title"),
		Location: c.QueryParam("location"),
	}
	var fields event.ValidationError
	if s := c.QueryParam("startDate"); s != "" {
		t, err := parseDateTime(s)
		if err != nil {
			fields = append(fields, event.FieldError{Field: "startDate", Message: "startDateの形式が不正です"})
		} else {
			criteria.StartDate = &t
		}
	}
	if s := c.QueryParam("endDate"); s != "" {
		t, err := parseDateTime(s)
		if err != nil {
			fields = append(fields, event.FieldError{Field: "endDate", Message: "endDateの形式が不正です"})
		} else {
			criteria.EndDate = &t
		}
	}
	if len(fields) > 0 {
		return api.NewValidationHTTPError(fields)
	}

	page, err := h.searcher.Search(c.Request().Context(), criteria, pageReq)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPageResponse(page))
}

// Update godoc
// @Summary イベントを更新
// @Description 指定IDのイベントを更新します。場所が変わった場合のみ天気情報を再取得します
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "イベントID"
// @Param request body EventRequest true "イベント情報"
// @Success 200 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	req, start, end, err := bindEventRequest(c)
	if err != nil {
		return err
	}

	e, err := h.eventService.UpdateEvent(c.Request().Context(), application.UpdateEventInput{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// Delete godoc
// @Summary イベントを削除
// @Description 指定IDのイベントを削除します
// @Tags events
// @Param id path int true "イベントID"
// @Success 204
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.eventService.DeleteEvent(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func bindEventRequest(c echo.Context) (*EventRequest, time.Time, time.Time, error) {
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return nil, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	var fields event.ValidationError
	start, err := parseDateTime(req.StartDate)
	if err != nil {
		fields = append(fields, event.FieldError{Field: "startDate", Message: "startDateの形式が不正です"})
	}
	end, err := parseDateTime(req.EndDate)
	if err != nil {
		fields = append(fields, event.FieldError{Field: "endDate", Message: "endDateの形式が不正です"})
	}
	if len(fields) > 0 {
		return nil, time.Time{}, time.Time{}, api.NewValidationHTTPError(fields)
	}
	return &req, start, end, nil
}

// parseDateTime はRFC3339またはタイムゾーンなしの日時を解釈する
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(localDateTimeLayout, s, time.Local)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "IDの形式が不正です")
	}
	return id, nil
}

func parsePageRequest(c echo.Context) (event.PageRequest, error) {
	page, err := intQueryParam(c, "page")
	if err != nil {
		return event.PageRequest{}, err
	}
	size, err := intQueryParam(c, "size")
	if err != nil {
		return event.PageRequest{}, err
	}
	req, err := event.NewPageRequest(page, size, c.QueryParam("sortBy"), c.QueryParam("direction"))
	if err != nil {
		return event.PageRequest{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}

func intQueryParam(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+"は整数である必要があります")
	}
	return n, nil
}

// toHTTPError はサービスのエラーをHTTPエラーに変換する
// 想定外のエラーはそのまま返し、エラーハンドラーで500にする
func toHTTPError(err error) error {
	var verr event.ValidationError
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, event.ErrEventNotFound.Error())
	case errors.As(err, &verr):
		return api.NewValidationHTTPError(verr)
	default:
		return err
	}
}
