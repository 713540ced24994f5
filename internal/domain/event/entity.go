package event

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength    = 255
	MaxLocationLength = 100
)

// Event はイベントエンティティを表す
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	WeatherData string    `json:"weatherData"` // 作成・更新時に天気APIから取得した要約
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewEvent は未永続化のイベントを作成する
// ID・タイムスタンプは保存時にストアが設定する
func NewEvent(title, description, location string, startDate, endDate time.Time) *Event {
	return &Event{
		Title:       title,
		Description: description,
		Location:    location,
		StartDate:   startDate,
		EndDate:     endDate,
	}
}

// IsNew は未保存のイベントかどうかを返す
func (e *Event) IsNew() bool {
	return e.ID == 0
}

// LocationChanged は場所が変更されるかどうかを返す
func (e *Event) LocationChanged(location string) bool {
	return e.Location != location
}

// Clone はイベントのコピーを返す
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// Validate は永続化前の検証を行う
func (e *Event) Validate() error {
	var errs ValidationError
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: ErrTitleRequired.Error()})
	} else if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		errs = append(errs, FieldError{Field: "title", Message: ErrTitleTooLong.Error()})
	}
	if strings.TrimSpace(e.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: ErrDescriptionRequired.Error()})
	}
	if strings.TrimSpace(e.Location) == "" {
		errs = append(errs, FieldError{Field: "location", Message: ErrLocationRequired.Error()})
	} else if utf8.RuneCountInString(e.Location) > MaxLocationLength {
		errs = append(errs, FieldError{Field: "location", Message: ErrLocationTooLong.Error()})
	}
	if e.StartDate.IsZero() {
		errs = append(errs, FieldError{Field: "startDate", Message: ErrStartDateRequired.Error()})
	}
	if e.EndDate.IsZero() {
		errs = append(errs, FieldError{Field: "endDate", Message: ErrEndDateRequired.Error()})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
