package dashboardhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/domain/table"
	"ems/internal/platform/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
	"ems/internal/transport/http/ui"
)

const maxTitleLen, maxContentLen = 120, 2000

type Handler struct {
	Service *dashboard.Service
	UI      *ui.Renderer
	Logger  *slog.Logger

	metrics       *table.Table[dashboard.EmployeeMetric]
	announcements *table.Table[dashboard.Announcement]
}

func NewHandler(service *dashboard.Service, renderer *ui.Renderer, pageSize int, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{Service: service, UI: renderer, Logger: logger}
	var err error
	if h.metrics, err = table.New(metricColumns(), table.WithPageSize(pageSize)); err != nil {
		return nil, fmt.Errorf("metrics table: %w", err)
	}
	if h.announcements, err = table.New(announcementColumns(), table.WithPageSize(pageSize)); err != nil {
		return nil, fmt.Errorf("announcements table: %w", err)
	}
	if err := table.CheckKeys(service.Metrics()); err != nil {
		return nil, fmt.Errorf("employee metrics: %w", err)
	}
	if err := table.CheckKeys(service.Announcements()); err != nil {
		return nil, fmt.Errorf("announcements: %w", err)
	}
	return h, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDashboardRead, h.UI.Forbidden())).Get("/", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermAnnouncementsWrite, h.UI.Forbidden())).Post("/announcements", h.handleAnnounce)
	})
}

type model struct {
	Cards         []ui.Card     `json:"cards"`
	AnalyticsTabs []ui.Tab      `json:"analyticsTabs,omitempty"`
	Metrics       ui.TableBlock `json:"metrics"`
	Announcements ui.TableBlock `json:"announcements"`
	CanAnnounce   bool          `json:"canAnnounce"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := ui.NewPage(r, "Dashboard")

	stats := h.Service.Stats()
	m := model{
		Cards:         make([]ui.Card, 0, len(stats)),
		Metrics:       ui.NewTableBlock(r, "Employee Performance", h.metrics.PageAt(h.Service.Metrics(), shared.ParsePage(r, "page"), false)),
		Announcements: ui.NewTableBlock(r, "Announcements", h.announcements.PageAt(h.Service.Announcements(), shared.ParsePage(r, "apage"), false)).WithParam("apage"),
		CanAnnounce:   auth.Can(user.Role, auth.PermAnnouncementsWrite),
	}
	for _, s := range stats {
		m.Cards = append(m.Cards, ui.Card{Title: s.Title, Value: s.Value, Note: trendNote(s)})
	}
	if auth.Can(user.Role, auth.PermAnalyticsRead) {
		active := r.URL.Query().Get("analytics")
		if active == "" {
			active = dashboard.AnalyticsTabs[0]
		}
		for _, tab := range dashboard.AnalyticsTabs {
			m.AnalyticsTabs = append(m.AnalyticsTabs, ui.Tab{Label: strings.ToUpper(tab[:1]) + tab[1:], URL: "/dashboard?analytics=" + tab, Active: tab == active})
		}
	}
	page.Data = m
	h.UI.Respond(w, r, http.StatusOK, "dashboard", page)
}

type announcementRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload announcementRequest
	if api.WantsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
			return
		}
	} else {
		payload = announcementRequest{Title: r.FormValue("title"), Content: r.FormValue("content")}
	}

	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	v.Required("content", payload.Content, "is required")
	v.MaxLen("title", strings.TrimSpace(payload.Title), maxTitleLen)
	v.MaxLen("content", strings.TrimSpace(payload.Content), maxContentLen)
	if v.HasIssues() {
		if api.WantsJSON(r) {
			v.Reject(w, reqID)
			return
		}
		h.UI.Error(w, r, http.StatusBadRequest, "Announcements need a title and content.")
		return
	}

	a, err := h.Service.Announce(payload.Title, payload.Content)
	if errors.Is(err, dashboard.ErrTitleRequired) || errors.Is(err, dashboard.ErrContentRequired) {
		h.UI.Fail(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err != nil {
		h.UI.Fail(w, r, http.StatusInternalServerError, "announce_failed", "failed to publish announcement")
		return
	}
	h.Logger.Info("announcement published", "announcementId", a.ID, "requestId", reqID)
	if api.WantsJSON(r) {
		api.Created(w, a, reqID)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func trendNote(s dashboard.StatCard) string {
	switch s.Trend {
	case dashboard.TrendUp:
		return fmt.Sprintf("+%d%% from last month", s.Change)
	case dashboard.TrendDown:
		return fmt.Sprintf("-%d%% from last month", s.Change)
	}
	return "No change from last month"
}

func metricColumns() []table.Column[dashboard.EmployeeMetric] {
	return []table.Column[dashboard.EmployeeMetric]{
		table.Text("Employee", func(m dashboard.EmployeeMetric) string { return m.Name }),
		table.Text("Department", func(m dashboard.EmployeeMetric) string { return m.Department }),
		table.Text("Attendance", func(m dashboard.EmployeeMetric) string { return m.Attendance }),
		table.Text("Productivity", func(m dashboard.EmployeeMetric) string { return m.Productivity }),
		table.Text("Last Active", func(m dashboard.EmployeeMetric) string { return m.LastActive }),
	}
}

func announcementColumns() []table.Column[dashboard.Announcement] {
	return []table.Column[dashboard.Announcement]{
		table.Text("Title", func(a dashboard.Announcement) string { return a.Title }),
		table.Text("Content", func(a dashboard.Announcement) string { return a.Content }),
		table.Text("Date", func(a dashboard.Announcement) string { return a.Date.Format(shared.DateLayout) }),
	}
}
