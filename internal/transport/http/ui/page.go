package ui

import (
	"net/http"
	"net/url"

	"ems/internal/domain/auth"
	"ems/internal/domain/table"
	"ems/internal/platform/requestctx"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type NavItem struct {
	Label  string
	Path   string
	Active bool
}

var navigation = []NavItem{
	{Label: "Dashboard", Path: "/dashboard"},
	{Label: "Payroll", Path: "/payroll"},
	{Label: "Attendance", Path: "/attendance"},
	{Label: "Activity Log", Path: "/activity-log"},
}

// Page is the data every template receives.
type Page struct {
	Title     string
	Path      string
	User      *auth.User
	Flash     string
	Error     string
	RequestID string
	Refresh   int
	Data      any
}

// NewPage starts a page for r, carrying the admitted user when present.
func NewPage(r *http.Request, title string) Page {
	page := Page{Title: title, Path: r.URL.Path, RequestID: requestID(r)}
	if user, ok := middleware.GetUser(r.Context()); ok {
		page.User = &user
	}
	return page
}

func (p Page) Nav() []NavItem {
	out := make([]NavItem, len(navigation))
	for i, item := range navigation {
		item.Active = item.Path == p.Path
		out[i] = item
	}
	return out
}

func (p Page) IsAdmin() bool { return p.User != nil && p.User.IsAdmin() }

// TableBlock binds a rendered view to the URL its page links rewrite.
type TableBlock struct {
	Title string     `json:"title,omitempty"`
	View  table.View `json:"table"`
	URL   *url.URL   `json:"-"`
	Param string     `json:"-"`
}

func NewTableBlock(r *http.Request, title string, view table.View) TableBlock {
	return TableBlock{Title: title, View: view, URL: r.URL, Param: "page"}
}

// WithParam sets the query parameter used by this block's page links.
func (b TableBlock) WithParam(param string) TableBlock {
	b.Param = param
	return b
}

func (b TableBlock) PageLink(page int) string {
	if b.URL == nil {
		return "?"
	}
	return shared.PageURL(b.URL, b.Param, page)
}

// Tab is one entry of a page-level tab strip.
type Tab struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

func requestID(r *http.Request) string {
	return requestctx.GetRequestID(r.Context())
}

type Card struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Note  string `json:"note,omitempty"`
}

type LoginData struct {
	Email string
}
