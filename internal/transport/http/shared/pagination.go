package shared

import (
	"net/http"
	"net/url"
	"strconv"
)

// ParsePage reads a 1-based page query parameter ("page" when param is
// empty). Missing or malformed values select page 1; the table clamps
// values past the end.
func ParsePage(r *http.Request, param string) int {
	if param == "" {
		param = "page"
	}
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return 1
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// PageURL rewrites the page parameter of u, keeping the other filters.
func PageURL(u *url.URL, param string, page int) string {
	if param == "" {
		param = "page"
	}
	q := u.Query()
	if page <= 1 {
		q.Del(param)
	} else {
		q.Set(param, strconv.Itoa(page))
	}
	out := url.URL{Path: u.Path, RawQuery: q.Encode()}
	return out.String()
}
