package feed

import (
	"strconv"
	"strings"
)

// Cursor marks the last item of the previous page. Its score is used as an
// exclusive upper bound for the next page, so a page boundary never
// re-serves or skips items while scores stay put.
type Cursor struct {
	Score float64
	ID    int64
}

// ParseCursor decodes a "{score}:{id}" token. A malformed token reports
// ok=false and is treated by callers as "start from the top", not as an
// error to the client.
func ParseCursor(s string) (Cursor, bool) {
	if s == "" {
		return Cursor{}, false
	}
	scoreStr, idStr, found := strings.Cut(s, ":")
	if !found {
		return Cursor{}, false
	}
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return Cursor{}, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{Score: score, ID: id}, true
}

// FormatCursor encodes a score/id pair as a cursor token
func FormatCursor(score float64, id int64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + ":" + strconv.FormatInt(id, 10)
}
