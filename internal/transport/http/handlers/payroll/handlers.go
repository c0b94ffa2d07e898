package payrollhandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/payroll"
	"ems/internal/domain/table"
	"ems/internal/platform/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
	"ems/internal/transport/http/ui"
)

const (
	tabCurrent = "current"
	tabHistory = "history"
)

type Handler struct {
	Service   *payroll.Service
	Directory *core.Directory
	UI        *ui.Renderer
	Logger    *slog.Logger

	current  *table.Table[payroll.Record]
	history  *table.Table[payroll.Record]
	personal *table.Table[payroll.Record]
}

func NewHandler(service *payroll.Service, directory *core.Directory, renderer *ui.Renderer, pageSize int, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{Service: service, Directory: directory, UI: renderer, Logger: logger}
	opt := table.WithPageSize(pageSize)
	var err error
	if h.current, err = table.New(currentColumns(), opt); err != nil {
		return nil, fmt.Errorf("current payroll table: %w", err)
	}
	if h.history, err = table.New(historyColumns(), opt); err != nil {
		return nil, fmt.Errorf("payroll history table: %w", err)
	}
	if h.personal, err = table.New(personalColumns(), opt); err != nil {
		return nil, fmt.Errorf("personal payroll table: %w", err)
	}
	if err := table.CheckKeys(service.Current()); err != nil {
		return nil, fmt.Errorf("current payroll: %w", err)
	}
	if err := table.CheckKeys(service.History()); err != nil {
		return nil, fmt.Errorf("payroll history: %w", err)
	}
	return h, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.UI.Forbidden())).Get("/", h.handlePayroll)
		r.With(middleware.RequirePermission(auth.PermPayrollManage, h.UI.Forbidden())).Post("/process", h.handleProcessAll)
		r.With(middleware.RequirePermission(auth.PermPayrollManage, h.UI.Forbidden())).Post("/{recordID}/process", h.handleProcess)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.UI.Forbidden())).Get("/payslips/{recordID}", h.handlePayslip)
	})
}

type summaryModel struct {
	Cards []ui.Card        `json:"cards,omitempty"`
	Tabs  []ui.Tab         `json:"tabs,omitempty"`
	Table ui.TableBlock    `json:"records"`
	Data  *payroll.Summary `json:"summary,omitempty"`

	CanProcessAll bool `json:"canProcessAll"`
}

func (h *Handler) handlePayroll(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := ui.NewPage(r, "Payroll")
	if user.IsAdmin() {
		page.Data = h.adminModel(r)
	} else {
		page.Data = h.employeeModel(r, user)
	}
	h.UI.Respond(w, r, http.StatusOK, "payroll", page)
}

func (h *Handler) adminModel(r *http.Request) summaryModel {
	tab := r.URL.Query().Get("tab")
	if tab != tabHistory {
		tab = tabCurrent
	}
	model := summaryModel{Tabs: []ui.Tab{
		{Label: "Current Month", URL: "/payroll?tab=" + tabCurrent, Active: tab == tabCurrent},
		{Label: "Payroll History", URL: "/payroll?tab=" + tabHistory, Active: tab == tabHistory},
	}}
	pageNum := shared.ParsePage(r, "")
	if tab == tabHistory {
		model.Table = ui.NewTableBlock(r, "Payroll History", h.history.PageAt(h.Service.History(), pageNum, false))
		return model
	}

	current := h.Service.Current()
	var total float64
	pending := 0
	for _, rec := range current {
		total += rec.NetPay()
		if rec.Status == payroll.StatusPending {
			pending++
		}
	}
	model.Cards = []ui.Card{
		{Title: "Total Net Payroll", Value: payroll.FormatMoney(total)},
		{Title: "Employees", Value: strconv.Itoa(len(current))},
		{Title: "Pending", Value: strconv.Itoa(pending)},
	}
	model.CanProcessAll = pending > 0
	model.Table = ui.NewTableBlock(r, "Current Month", h.current.PageAt(current, pageNum, false))
	return model
}

func (h *Handler) employeeModel(r *http.Request, user auth.User) summaryModel {
	emp, err := h.Directory.ForUser(user.ID)
	if err != nil {
		return summaryModel{Table: ui.NewTableBlock(r, "My Payslips", h.personal.PageAt(nil, 1, false))}
	}
	summary := h.Service.Summary(emp.ID)
	return summaryModel{
		Cards: []ui.Card{
			{Title: "Monthly Salary", Value: payroll.FormatMoney(summary.MonthlySalary)},
			{Title: "Overtime This Month", Value: strconv.FormatFloat(summary.OvertimeHours, 'f', -1, 64) + "h", Note: payroll.FormatMoney(summary.OvertimePay)},
			{Title: "Year-to-Date Earnings", Value: payroll.FormatMoney(summary.YearToDate)},
		},
		Data:  &summary,
		Table: ui.NewTableBlock(r, "My Payslips", h.personal.PageAt(h.Service.EmployeeHistory(emp.ID), shared.ParsePage(r, ""), false)),
	}
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "recordID"))
	if err != nil {
		h.UI.Fail(w, r, http.StatusBadRequest, "invalid_id", "invalid payroll record id")
		return
	}
	rec, err := h.Service.Process(id)
	switch {
	case errors.Is(err, payroll.ErrRecordNotFound):
		h.UI.Fail(w, r, http.StatusNotFound, "not_found", "payroll record not found")
		return
	case errors.Is(err, payroll.ErrAlreadyProcessed):
		h.UI.Fail(w, r, http.StatusConflict, "already_processed", "payroll record already processed")
		return
	case err != nil:
		h.UI.Fail(w, r, http.StatusInternalServerError, "process_failed", "failed to process payroll")
		return
	}
	h.Logger.Info("payroll processed", "recordId", rec.ID, "employeeId", rec.EmployeeID)
	h.done(w, r, rec)
}

func (h *Handler) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	n := h.Service.ProcessAll()
	h.Logger.Info("payroll run processed", "records", n)
	h.done(w, r, map[string]int{"processed": n})
}

func (h *Handler) done(w http.ResponseWriter, r *http.Request, data any) {
	if api.WantsJSON(r) {
		api.Success(w, data, requestctx.GetRequestID(r.Context()))
		return
	}
	http.Redirect(w, r, "/payroll?tab="+tabCurrent, http.StatusSeeOther)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "recordID"))
	if err != nil {
		h.UI.Fail(w, r, http.StatusBadRequest, "invalid_id", "invalid payslip id")
		return
	}
	user, _ := middleware.GetUser(r.Context())
	owner := 0
	if !user.IsAdmin() {
		emp, err := h.Directory.ForUser(user.ID)
		if err != nil {
			h.UI.Fail(w, r, http.StatusNotFound, "not_found", "payslip not found")
			return
		}
		owner = emp.ID
	}
	rec, err := h.Service.Payslip(id, owner)
	switch {
	case errors.Is(err, payroll.ErrPayslipNotAllowed):
		h.UI.Fail(w, r, http.StatusForbidden, "forbidden", "payslip belongs to another employee")
		return
	case err != nil:
		h.UI.Fail(w, r, http.StatusNotFound, "not_found", "payslip not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+payroll.PayslipFilename(rec))
	if err := payroll.WritePayslip(w, rec); err != nil {
		h.Logger.Warn("payslip render failed", "recordId", rec.ID, "err", err)
	}
}

func currentColumns() []table.Column[payroll.Record] {
	return []table.Column[payroll.Record]{
		table.Text("Employee", func(r payroll.Record) string { return r.EmployeeName }),
		table.Text("Department", func(r payroll.Record) string { return r.Department }),
		table.Text("Base Salary", func(r payroll.Record) string { return payroll.FormatMoney(r.BaseSalary) }),
		table.Text("Overtime", func(r payroll.Record) string { return payroll.FormatMoney(r.OvertimePay) }),
		table.Text("Bonus", func(r payroll.Record) string { return payroll.FormatMoney(r.Bonus) }),
		table.Text("Deductions", func(r payroll.Record) string { return payroll.FormatMoney(r.Deductions) }),
		table.Text("Net Pay", func(r payroll.Record) string { return payroll.FormatMoney(r.NetPay()) }),
		statusColumn(),
		table.ActionColumn[payroll.Record]{Header: "Actions", Render: func(r payroll.Record) []table.Action {
			if r.Status != payroll.StatusPending {
				return nil
			}
			return []table.Action{{Label: "Process", Method: http.MethodPost, URL: fmt.Sprintf("/payroll/%d/process", r.ID), Tone: table.ToneSuccess}}
		}},
	}
}

func historyColumns() []table.Column[payroll.Record] {
	return []table.Column[payroll.Record]{
		table.Text("Employee", func(r payroll.Record) string { return r.EmployeeName }),
		table.Text("Pay Period", func(r payroll.Record) string { return r.PayPeriod }),
		table.Text("Net Pay", func(r payroll.Record) string { return payroll.FormatMoney(r.NetPay()) }),
		table.Text("Pay Date", func(r payroll.Record) string { return payDate(r) }),
		statusColumn(),
		payslipColumn(),
	}
}

func personalColumns() []table.Column[payroll.Record] {
	return []table.Column[payroll.Record]{
		table.Text("Pay Period", func(r payroll.Record) string { return r.PayPeriod }),
		table.Text("Base Salary", func(r payroll.Record) string { return payroll.FormatMoney(r.BaseSalary) }),
		table.Text("Overtime", func(r payroll.Record) string { return payroll.FormatMoney(r.OvertimePay) }),
		table.Text("Bonus", func(r payroll.Record) string { return payroll.FormatMoney(r.Bonus) }),
		table.Text("Deductions", func(r payroll.Record) string { return payroll.FormatMoney(r.Deductions) }),
		table.Text("Net Pay", func(r payroll.Record) string { return payroll.FormatMoney(r.NetPay()) }),
		statusColumn(),
		payslipColumn(),
	}
}

func statusColumn() table.DataColumn[payroll.Record] {
	return table.Badge("Status", func(r payroll.Record) string { return string(r.Status) }, statusTone)
}

func payslipColumn() table.ActionColumn[payroll.Record] {
	return table.ActionColumn[payroll.Record]{Header: "Payslip", Render: func(r payroll.Record) []table.Action {
		if r.Status != payroll.StatusPaid {
			return nil
		}
		return []table.Action{{Label: "Download", Method: http.MethodGet, URL: fmt.Sprintf("/payroll/payslips/%d", r.ID), Tone: table.ToneInfo}}
	}}
}

func statusTone(status string) table.Tone {
	switch payroll.Status(status) {
	case payroll.StatusPaid:
		return table.ToneSuccess
	case payroll.StatusPending:
		return table.ToneWarning
	case payroll.StatusFailed:
		return table.ToneDanger
	}
	return table.ToneNone
}

func payDate(r payroll.Record) string {
	if r.PayDate.IsZero() {
		return "-"
	}
	return r.PayDate.Format("2006-01-02")
}
