package activityhandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/activity"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/table"
	"ems/internal/platform/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
	"ems/internal/transport/http/ui"
)

type Handler struct {
	Service *activity.Service
	UI      *ui.Renderer
	Logger  *slog.Logger

	entries *table.Table[activity.Entry]
}

func NewHandler(service *activity.Service, renderer *ui.Renderer, pageSize int, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := table.New(columns(), table.WithPageSize(pageSize))
	if err != nil {
		return nil, fmt.Errorf("activity table: %w", err)
	}
	if err := table.CheckKeys(activity.SeedEntries()); err != nil {
		return nil, fmt.Errorf("seeded activity: %w", err)
	}
	return &Handler{Service: service, UI: renderer, Logger: logger, entries: entries}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/activity-log", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermActivityRead, h.UI.Forbidden())).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermActivityExport, h.UI.Forbidden())).Get("/export", h.handleExport)
	})
}

type model struct {
	Cards     []ui.Card               `json:"cards"`
	Stats     activity.Stats          `json:"stats"`
	Search    string                  `json:"search"`
	Action    string                  `json:"action"`
	Filters   []activity.ActionFilter `json:"filters"`
	Table     ui.TableBlock           `json:"entries"`
	ExportURL string                  `json:"exportUrl,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	entries, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.Logger.Warn("activity list failed", "err", err)
		h.UI.Fail(w, r, http.StatusInternalServerError, "activity_list_failed", "failed to list activity")
		return
	}
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.Logger.Warn("activity stats failed", "err", err)
	}

	user, _ := middleware.GetUser(r.Context())
	m := model{
		Cards: []ui.Card{
			{Title: "Today's Logins", Value: strconv.Itoa(stats.TodayLogins)},
			{Title: "Unique Users", Value: strconv.Itoa(stats.UniqueUsers)},
			{Title: "Failed Attempts", Value: strconv.Itoa(stats.FailedAttempts)},
		},
		Stats:   stats,
		Search:  q.Search,
		Action:  q.Action,
		Filters: activity.ActionFilters,
		Table:   ui.NewTableBlock(r, "", h.entries.PageAt(entries, shared.ParsePage(r, ""), false)),
	}
	if auth.Can(user.Role, auth.PermActivityExport) {
		m.ExportURL = exportURL(q)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(entries)))
	page := ui.NewPage(r, "Activity Log")
	page.Data = m
	h.UI.Respond(w, r, http.StatusOK, "activity", page)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	entries, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.UI.Fail(w, r, http.StatusInternalServerError, "activity_export_failed", "failed to export activity")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=activity-log.csv")
	if err := activity.WriteCSV(w, entries); err != nil {
		h.Logger.Warn("activity export failed", "err", err)
	}
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) (activity.Query, bool) {
	q := activity.Query{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Action: r.URL.Query().Get("action"),
	}
	if q.Action == "" {
		q.Action = "all"
	}
	allowed := make([]string, 0, len(activity.ActionFilters))
	for _, f := range activity.ActionFilters {
		allowed = append(allowed, f.Value)
	}
	v := shared.NewValidator()
	v.Enum("action", q.Action, allowed, "must be one of "+strings.Join(allowed, ", "))
	v.MaxLen("q", q.Search, 200)
	if !v.HasIssues() {
		return q, true
	}
	if api.WantsJSON(r) {
		v.Reject(w, requestctx.GetRequestID(r.Context()))
	} else {
		h.UI.Error(w, r, http.StatusBadRequest, "Unknown activity filter.")
	}
	return q, false
}

func exportURL(q activity.Query) string {
	values := url.Values{}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.Action != "" && q.Action != "all" {
		values.Set("action", q.Action)
	}
	if len(values) == 0 {
		return "/activity-log/export"
	}
	return "/activity-log/export?" + values.Encode()
}

func columns() []table.Column[activity.Entry] {
	return []table.Column[activity.Entry]{
		table.Text("Username", func(e activity.Entry) string { return e.Username }),
		table.Text("Action", func(e activity.Entry) string { return e.Action }),
		table.Text("Timestamp", func(e activity.Entry) string { return e.Timestamp.Format(activity.TimestampLayout) }),
		table.Text("IP Address", func(e activity.Entry) string { return e.IPAddress }),
		table.Badge("Status", func(e activity.Entry) string { return e.Status }, func(s string) table.Tone {
			if s == audit.StatusFailed {
				return table.ToneDanger
			}
			return table.ToneSuccess
		}),
	}
}
