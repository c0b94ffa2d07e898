// Package ui renders the server-side HTML pages from embedded templates.
package ui

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"ems/internal/domain/attendance"
	"ems/internal/domain/payroll"
	"ems/internal/domain/table"
	"ems/internal/transport/http/api"
)

//go:embed templates
var templateFS embed.FS

// LoadingRefresh is the auto-refresh interval of the loading page in seconds.
const LoadingRefresh = 1

var ErrUnknownPage = errors.New("unknown page template")

// Renderer executes one template set per page, each sharing the layout and
// partials.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func New(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := template.New("layout").Funcs(funcs()).ParseFS(templateFS, "templates/layout.tmpl", "templates/partials/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	entries, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(entries)), logger: logger}
	for _, entry := range entries {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, entry); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry, err)
		}
		r.pages[strings.TrimSuffix(path.Base(entry), ".tmpl")] = clone
	}
	return r, nil
}

// Render writes the named page with status. Output is buffered so a
// template failure never produces a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("template execution failed", "template", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Error renders the error page.
func (r *Renderer) Error(w http.ResponseWriter, req *http.Request, status int, message string) {
	page := NewPage(req, http.StatusText(status))
	page.Data = ErrorData{Status: status, Message: message}
	if err := r.Render(w, status, "error", page); err != nil {
		r.logger.Warn("render error page failed", "err", err)
	}
}

// Loading renders the neutral placeholder shown while a session settles.
func (r *Renderer) Loading() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		page := Page{Title: "Loading", Refresh: LoadingRefresh, RequestID: requestID(req)}
		page.Data = TableBlock{View: loadingTable.Render(nil, nil, true)}
		if err := r.Render(w, http.StatusOK, "loading", page); err != nil {
			r.logger.Warn("render loading page failed", "err", err)
		}
	})
}

// Forbidden renders the 403 page for signed-in users lacking a permission.
func (r *Renderer) Forbidden() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.Error(w, req, http.StatusForbidden, "You do not have access to this page.")
	})
}

type ErrorData struct {
	Status  int
	Message string
}

type placeholderRow struct{}

func (placeholderRow) RowKey() string { return "" }

var loadingTable = table.MustNew([]table.Column[placeholderRow]{
	table.Text("Name", func(placeholderRow) string { return "" }),
	table.Text("Department", func(placeholderRow) string { return "" }),
	table.Text("Status", func(placeholderRow) string { return "" }),
	table.Text("Updated", func(placeholderRow) string { return "" }),
})

func funcs() template.FuncMap {
	return template.FuncMap{
		"money": payroll.FormatMoney,
		"clock": attendance.FormatClock,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("Jan 2, 2006")
		},
		"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
		"toneClass": func(t table.Tone) string {
			if t == table.ToneNone {
				return "tone-none"
			}
			return "tone-" + string(t)
		},
		"controlLabel": func(k table.ControlKind) string {
			switch k {
			case table.ControlFirst:
				return "«"
			case table.ControlPrev:
				return "‹"
			case table.ControlNext:
				return "›"
			case table.ControlLast:
				return "»"
			}
			return string(k)
		},
		"isPost": func(method string) bool { return strings.EqualFold(method, http.MethodPost) },
		"trend": func(change int) string {
			switch {
			case change > 0:
				return fmt.Sprintf("+%d%%", change)
			case change < 0:
				return fmt.Sprintf("%d%%", change)
			}
			return "0%"
		},
	}
}

// Respond writes page.Data as an API envelope for JSON callers and the
// named page otherwise.
func (r *Renderer) Respond(w http.ResponseWriter, req *http.Request, status int, name string, page Page) {
	if api.WantsJSON(req) {
		api.WriteJSON(w, status, api.Envelope{Success: status < http.StatusBadRequest, Data: page.Data, RequestID: page.RequestID})
		return
	}
	if err := r.Render(w, status, name, page); err != nil {
		r.logger.Warn("render page failed", "page", name, "err", err)
	}
}

// Fail reports an error as an API envelope or the HTML error page.
func (r *Renderer) Fail(w http.ResponseWriter, req *http.Request, status int, code, message string) {
	if api.WantsJSON(req) {
		api.Fail(w, status, code, message, requestID(req))
		return
	}
	r.Error(w, req, status, message)
}
