package application

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sanosuguru/go-event-weather-manager/internal/domain/event"
)

// キャッシュキーの名前空間
const (
	namespaceAll      = "all"
	namespaceTitle    = "title"
	namespaceLocation = "location"
	namespaceDate     = "date"
	namespaceID       = "id"
)

// pageKey は名前空間・フィルタ引数・ページ条件からキーを組み立てる
// フィルタ引数はエスケープして区切り文字と衝突しないようにする
func pageKey(namespace string, req event.PageRequest, args ...string) string {
	parts := make([]string, 0, len(args)+5)
	parts = append(parts, namespace)
	for _, a := range args {
		parts = append(parts, url.QueryEscape(a))
	}
	parts = append(parts,
		strconv.Itoa(req.Page),
		strconv.Itoa(req.Size),
		req.SortBy,
		string(req.Direction),
	)
	return strings.Join(parts, ":")
}

func dateArg(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func idKey(id int64) string {
	return namespaceID + ":" + strconv.FormatInt(id, 10)
}
