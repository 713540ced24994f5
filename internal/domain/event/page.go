package event

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSortBy   = "startDate"
	// MaxPage はOffsetがintに収まる最大のページ番号
	MaxPage         = math.MaxInt / MaxPageSize
)

// Direction はソート方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// sortColumns はAPIのソート項目とカラム名の対応
var sortColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"location":  "location",
	"startDate": "start_date",
	"endDate":   "end_date",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// PageRequest はページング・ソート条件
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	Direction Direction
}

// NewPageRequest は正規化済みのPageRequestを作成する
func NewPageRequest(page, size int, sortBy, direction string) (PageRequest, error) {
	if page < 0 {
		page = 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	if _, ok := sortColumns[sortBy]; !ok {
		return PageRequest{}, ErrInvalidSortField
	}
	dir := Direction(strings.ToLower(direction))
	switch dir {
	case "":
		dir = Desc
	case Asc, Desc:
	default:
		return PageRequest{}, ErrInvalidDirection
	}
	return PageRequest{Page: page, Size: size, SortBy: sortBy, Direction: dir}, nil
}

// DefaultPageRequest は開始日時の降順で先頭ページを返す
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: 0, Size: DefaultPageSize, SortBy: DefaultSortBy, Direction: Desc}
}

// Offset はSQLのOFFSETを返す
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// SortColumn はソート対象のカラム名を返す
func (p PageRequest) SortColumn() string {
	if col, ok := sortColumns[p.SortBy]; ok {
		return col
	}
	return sortColumns[DefaultSortBy]
}

// Page はページング結果
type Page struct {
	Content       []*Event `json:"content"`
	TotalElements int64    `json:"totalElements"`
	TotalPages    int      `json:"totalPages"`
	Number        int      `json:"number"`
	Size          int      `json:"size"`
}

// NewPage はページング結果を作成する
func NewPage(content []*Event, total int64, req PageRequest) *Page {
	if content == nil {
		content = []*Event{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return &Page{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        req.Page,
		Size:          req.Size,
	}
}
