package activityhandler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/activity"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	activityhandler "ems/internal/transport/http/handlers/activity"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/ui"
)

var (
	admin    = auth.User{ID: 1, Name: "Admin User", Email: "admin@example.com", Role: auth.RoleAdmin}
	employee = auth.User{ID: 2, Name: "John Employee", Email: "john@example.com", Role: auth.RoleEmployee}
)

type activityBody struct {
	Data struct {
		Stats     activity.Stats `json:"stats"`
		Action    string         `json:"action"`
		ExportURL string         `json:"exportUrl"`
		Table     struct {
			Total int `json:"total"`
		} `json:"entries"`
	} `json:"data"`
}

func newRouter(t *testing.T) (http.Handler, *audit.Log) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := ui.New(logger)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	log := audit.NewLog(50)
	h, err := activityhandler.NewHandler(activity.NewService(log), renderer, 10, logger)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, log
}

func serve(router http.Handler, user auth.User, target string, jsonAPI bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if jsonAPI {
		req.Header.Set("Accept", "application/json")
	}
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestActivityFilters(t *testing.T) {
	router, log := newRouter(t)
	_ = log.Record(context.Background(), audit.Event{Email: "john@example.com", Action: audit.ActionFailedLogin, Status: audit.StatusFailed, IP: "10.0.0.9"})

	tests := []struct {
		name  string
		query string
		total string
	}{
		{name: "all", query: "", total: "11"},
		{name: "failed", query: "?action=Failed", total: "3"},
		{name: "search", query: "?q=report", total: "1"},
		{name: "search and action", query: "?q=john&action=Failed", total: "1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, admin, "/activity-log"+tc.query, true)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("X-Total-Count"); got != tc.total {
				t.Fatalf("expected %s entries, got %s", tc.total, got)
			}
		})
	}

	for _, bad := range []string{"?action=Deleted", "?q=" + strings.Repeat("a", 201)} {
		if rec := serve(router, admin, "/activity-log"+bad, true); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestActivityExportIsAdminOnly(t *testing.T) {
	router, _ := newRouter(t)

	var body activityBody
	rec := serve(router, admin, "/activity-log?action=Login", true)
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.ExportURL != "/activity-log/export?action=Login" || body.Data.Action != "Login" {
		t.Fatalf("unexpected admin model %+v", body.Data)
	}

	body = activityBody{}
	rec = serve(router, employee, "/activity-log", true)
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || body.Data.ExportURL != "" || body.Data.Table.Total != 10 {
		t.Fatalf("employee should see the log without export: %d %+v", rec.Code, body.Data)
	}

	if rec := serve(router, employee, "/activity-log/export", false); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee export, got %d", rec.Code)
	}

	rec = serve(router, admin, "/activity-log/export?action=Logout", false)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("expected csv export, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) < 2 || lines[0] != "username,action,timestamp,ip_address,status" {
		t.Fatalf("unexpected csv %q", rec.Body.String())
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "Logout") {
			t.Fatalf("export should honour the action filter: %q", line)
		}
	}
}
