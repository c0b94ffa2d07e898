package payrollhandler_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/payroll"
	"ems/internal/domain/table"
	payrollhandler "ems/internal/transport/http/handlers/payroll"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/ui"
)

var (
	admin    = auth.User{ID: 1, Name: "Admin User", Email: "admin@example.com", Role: auth.RoleAdmin}
	employee = auth.User{ID: 2, Name: "John Employee", Email: "john@example.com", Role: auth.RoleEmployee}
)

type payrollBody struct {
	Data struct {
		Cards []ui.Card `json:"cards"`
		Tabs  []ui.Tab  `json:"tabs"`
		Table struct {
			Total int `json:"total"`
		} `json:"records"`
		Summary       *payroll.Summary `json:"summary"`
		CanProcessAll bool             `json:"canProcessAll"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := ui.New(logger)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	dir := core.NewDirectory(core.SeedEmployees())
	h, err := payrollhandler.NewHandler(payroll.NewService(dir), dir, renderer, 10, logger)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestNewHandlerRejectsDuplicateRowKeys(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := ui.New(logger)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	// employee 201 collides with one of John's earlier payslips in history
	employees := append(core.SeedEmployees(), core.Employee{ID: 201, Name: "Clash", Department: "Ops", Position: "Analyst", AnnualSalary: 48000})
	dir := core.NewDirectory(employees)
	if _, err := payrollhandler.NewHandler(payroll.NewService(dir), dir, renderer, 10, logger); !errors.Is(err, table.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func serve(router http.Handler, user auth.User, method, target string, jsonAPI bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if jsonAPI {
		req.Header.Set("Accept", "application/json")
	} else if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) payrollBody {
	t.Helper()
	var out payrollBody
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestAdminPayrollTabs(t *testing.T) {
	router := newRouter(t)

	rec := serve(router, admin, http.MethodGet, "/payroll", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body.Data.Table.Total != 5 || !body.Data.CanProcessAll {
		t.Fatalf("unexpected current month view %+v", body.Data)
	}
	if len(body.Data.Tabs) != 2 || !body.Data.Tabs[0].Active {
		t.Fatalf("current tab should be active by default: %+v", body.Data.Tabs)
	}
	if body.Data.Cards[2].Title != "Pending" || body.Data.Cards[2].Value != "5" {
		t.Fatalf("unexpected pending card %+v", body.Data.Cards[2])
	}

	body = decode(t, serve(router, admin, http.MethodGet, "/payroll?tab=history", true))
	if body.Data.Table.Total != 7 || !body.Data.Tabs[1].Active {
		t.Fatalf("unexpected history view %+v", body.Data)
	}
}

func TestProcessPayroll(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "pending record", target: "/payroll/1/process", status: http.StatusOK},
		{name: "already processed", target: "/payroll/1/process", status: http.StatusConflict},
		{name: "unknown record", target: "/payroll/99/process", status: http.StatusNotFound},
		{name: "malformed id", target: "/payroll/abc/process", status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, admin, http.MethodPost, tc.target, true)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	rec := serve(router, admin, http.MethodPost, "/payroll/2/process", false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/payroll?tab=current" {
		t.Fatalf("form submit should redirect back to the current tab, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	body := decode(t, serve(router, admin, http.MethodGet, "/payroll", true))
	if body.Data.Cards[2].Value != "3" {
		t.Fatalf("expected 3 pending after two runs, got %+v", body.Data.Cards[2])
	}
}

func TestEmployeePayroll(t *testing.T) {
	router := newRouter(t)

	body := decode(t, serve(router, employee, http.MethodGet, "/payroll", true))
	if body.Data.Summary == nil || body.Data.Table.Total != 3 || len(body.Data.Tabs) != 0 {
		t.Fatalf("unexpected employee view %+v", body.Data)
	}

	rec := serve(router, employee, http.MethodGet, "/payroll/payslips/101", false)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatalf("expected own payslip as pdf, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("payslip should download as attachment, got %q", cd)
	}

	rec = serve(router, employee, http.MethodGet, "/payroll/payslips/102", true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another employee's payslip, got %d", rec.Code)
	}
	rec = serve(router, employee, http.MethodPost, "/payroll/process", true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employees must not run payroll, got %d", rec.Code)
	}
	rec = serve(router, employee, http.MethodPost, "/payroll/process", false)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "do not have access") {
		t.Fatalf("expected the forbidden page, got %d", rec.Code)
	}
}
