package attendancehandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/attendance"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/table"
	"ems/internal/platform/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
	"ems/internal/transport/http/ui"
)

const (
	tabDaily    = "daily"
	tabLeaves   = "leaves"
	tabMine     = "mine"
	tabMyLeaves = "my-leaves"

	maxCommentLen = 500
)

type Handler struct {
	Service   *attendance.Service
	Directory *core.Directory
	UI        *ui.Renderer
	Logger    *slog.Logger

	daily    *table.Table[attendance.Record]
	leaves   *table.Table[attendance.LeaveRequest]
	mine     *table.Table[attendance.Record]
	myLeaves *table.Table[attendance.LeaveRequest]
}

func NewHandler(service *attendance.Service, directory *core.Directory, renderer *ui.Renderer, pageSize int, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{Service: service, Directory: directory, UI: renderer, Logger: logger}
	opt := table.WithPageSize(pageSize)
	var err error
	if h.daily, err = table.New(dailyColumns(), opt); err != nil {
		return nil, fmt.Errorf("daily attendance table: %w", err)
	}
	if h.leaves, err = table.New(leaveColumns(), opt); err != nil {
		return nil, fmt.Errorf("leave table: %w", err)
	}
	if h.mine, err = table.New(mineColumns(), opt); err != nil {
		return nil, fmt.Errorf("personal attendance table: %w", err)
	}
	if h.myLeaves, err = table.New(myLeaveColumns(), opt); err != nil {
		return nil, fmt.Errorf("personal leave table: %w", err)
	}
	if err := table.CheckKeys(service.Daily(service.LatestDay())); err != nil {
		return nil, fmt.Errorf("daily attendance: %w", err)
	}
	if err := table.CheckKeys(service.Leaves()); err != nil {
		return nil, fmt.Errorf("leave requests: %w", err)
	}
	return h, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	forbidden := h.UI.Forbidden()
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, forbidden)).Get("/", h.handleAttendance)
		r.With(middleware.RequirePermission(auth.PermAttendanceCheckIn, forbidden)).Post("/check-in", h.handleCheckIn)
		r.With(middleware.RequirePermission(auth.PermAttendanceCheckIn, forbidden)).Post("/check-out", h.handleCheckOut)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, forbidden)).Post("/leaves/{leaveID}/approve", h.handleDecide(true))
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, forbidden)).Post("/leaves/{leaveID}/reject", h.handleDecide(false))
	})
}

type model struct {
	Tabs     []ui.Tab                 `json:"tabs"`
	Table    ui.TableBlock            `json:"records"`
	Cards    []ui.Card                `json:"cards,omitempty"`
	Today    *attendance.Today        `json:"today,omitempty"`
	Stats    *attendance.MonthlyStats `json:"stats,omitempty"`
	ShowDate bool                     `json:"-"`
	Date     string                   `json:"date,omitempty"`
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := ui.NewPage(r, "Attendance")
	if user.IsAdmin() {
		data, ok := h.adminModel(w, r)
		if !ok {
			return
		}
		page.Data = data
	} else {
		page.Data = h.employeeModel(r, user)
	}
	h.UI.Respond(w, r, http.StatusOK, "attendance", page)
}

func (h *Handler) adminModel(w http.ResponseWriter, r *http.Request) (model, bool) {
	tab := r.URL.Query().Get("tab")
	if tab != tabLeaves {
		tab = tabDaily
	}
	m := model{Tabs: []ui.Tab{
		{Label: "Daily Attendance", URL: "/attendance?tab=" + tabDaily, Active: tab == tabDaily},
		{Label: "Leave Requests", URL: "/attendance?tab=" + tabLeaves, Active: tab == tabLeaves},
	}}
	pageNum := shared.ParsePage(r, "")
	if tab == tabLeaves {
		m.Table = ui.NewTableBlock(r, "Leave Requests", h.leaves.PageAt(h.Service.Leaves(), pageNum, false))
		return m, true
	}

	day := h.Service.LatestDay()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		v := shared.NewValidator()
		parsed, ok := v.Date("date", raw)
		if !ok {
			if api.WantsJSON(r) {
				v.Reject(w, requestctx.GetRequestID(r.Context()))
			} else {
				h.UI.Error(w, r, http.StatusBadRequest, "Date must be in YYYY-MM-DD format.")
			}
			return model{}, false
		}
		day = parsed
	}
	m.ShowDate = true
	m.Date = day.Format(shared.DateLayout)
	m.Table = ui.NewTableBlock(r, "Daily Attendance", h.daily.PageAt(h.Service.Daily(day), pageNum, false))
	return m, true
}

func (h *Handler) employeeModel(r *http.Request, user auth.User) model {
	tab := r.URL.Query().Get("tab")
	if tab != tabMyLeaves {
		tab = tabMine
	}
	m := model{Tabs: []ui.Tab{
		{Label: "My Attendance", URL: "/attendance?tab=" + tabMine, Active: tab == tabMine},
		{Label: "My Leaves", URL: "/attendance?tab=" + tabMyLeaves, Active: tab == tabMyLeaves},
	}}
	emp, err := h.Directory.ForUser(user.ID)
	if err != nil {
		m.Table = ui.NewTableBlock(r, "My Attendance", h.mine.PageAt(nil, 1, false))
		return m
	}

	today := h.Service.Today(emp.ID)
	stats := h.Service.Stats(emp.ID)
	m.Today, m.Stats = &today, &stats
	m.Cards = []ui.Card{
		{Title: "Working Days", Value: strconv.Itoa(stats.WorkingDays)},
		{Title: "Present", Value: strconv.Itoa(stats.Present)},
		{Title: "Absent", Value: strconv.Itoa(stats.Absent)},
		{Title: "Leave", Value: strconv.Itoa(stats.Leave)},
	}
	pageNum := shared.ParsePage(r, "")
	if tab == tabMyLeaves {
		m.Table = ui.NewTableBlock(r, "My Leaves", h.myLeaves.PageAt(h.Service.MyLeaves(emp.ID), pageNum, false))
		return m
	}
	m.Table = ui.NewTableBlock(r, "My Attendance", h.mine.PageAt(h.Service.Mine(emp.ID), pageNum, false))
	return m
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, h.Service.CheckIn)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	h.clock(w, r, h.Service.CheckOut)
}

func (h *Handler) clock(w http.ResponseWriter, r *http.Request, fn func(int) (attendance.Record, error)) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Directory.ForUser(user.ID)
	if err != nil {
		h.UI.Fail(w, r, http.StatusNotFound, "employee_not_found", "no employee record for this account")
		return
	}
	rec, err := fn(emp.ID)
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn), errors.Is(err, attendance.ErrAlreadyCheckedOut):
		h.UI.Fail(w, r, http.StatusConflict, "already_recorded", err.Error())
		return
	case errors.Is(err, attendance.ErrNotCheckedIn):
		h.UI.Fail(w, r, http.StatusConflict, "not_checked_in", err.Error())
		return
	case err != nil:
		h.UI.Fail(w, r, http.StatusInternalServerError, "attendance_failed", "failed to record attendance")
		return
	}
	h.done(w, r, rec, "/attendance?tab="+tabMine)
}

func (h *Handler) handleDecide(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "leaveID"))
		if err != nil {
			h.UI.Fail(w, r, http.StatusBadRequest, "invalid_id", "invalid leave request id")
			return
		}
		comment := strings.TrimSpace(r.FormValue("comment"))
		v := shared.NewValidator()
		v.MaxLen("comment", comment, maxCommentLen)
		if v.HasIssues() {
			if api.WantsJSON(r) {
				v.Reject(w, requestctx.GetRequestID(r.Context()))
			} else {
				h.UI.Error(w, r, http.StatusBadRequest, "Comment is too long.")
			}
			return
		}

		leave, err := h.Service.Decide(id, approve, comment)
		switch {
		case errors.Is(err, attendance.ErrLeaveNotFound):
			h.UI.Fail(w, r, http.StatusNotFound, "not_found", "leave request not found")
			return
		case errors.Is(err, attendance.ErrLeaveNotPending):
			h.UI.Fail(w, r, http.StatusConflict, "already_decided", "leave request already decided")
			return
		case err != nil:
			h.UI.Fail(w, r, http.StatusInternalServerError, "decision_failed", "failed to update leave request")
			return
		}
		h.Logger.Info("leave request decided", "leaveId", leave.ID, "status", leave.Status)
		h.done(w, r, leave, "/attendance?tab="+tabLeaves)
	}
}

func (h *Handler) done(w http.ResponseWriter, r *http.Request, data any, next string) {
	if api.WantsJSON(r) {
		api.Success(w, data, requestctx.GetRequestID(r.Context()))
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func dailyColumns() []table.Column[attendance.Record] {
	return []table.Column[attendance.Record]{
		table.Text("Employee", func(r attendance.Record) string { return r.EmployeeName }),
		table.Text("Department", func(r attendance.Record) string { return r.Department }),
		table.Text("Check In", func(r attendance.Record) string { return attendance.FormatClock(r.CheckIn) }),
		table.Text("Check Out", func(r attendance.Record) string { return attendance.FormatClock(r.CheckOut) }),
		table.Text("Total Hours", attendance.Record.TotalHours),
		statusColumn(),
	}
}

func mineColumns() []table.Column[attendance.Record] {
	return []table.Column[attendance.Record]{
		table.Text("Date", func(r attendance.Record) string { return r.Date.Format(shared.DateLayout) }),
		table.Text("Check In", func(r attendance.Record) string { return attendance.FormatClock(r.CheckIn) }),
		table.Text("Check Out", func(r attendance.Record) string { return attendance.FormatClock(r.CheckOut) }),
		table.Text("Total Hours", attendance.Record.TotalHours),
		statusColumn(),
	}
}

func leaveColumns() []table.Column[attendance.LeaveRequest] {
	return []table.Column[attendance.LeaveRequest]{
		table.Text("Employee", func(l attendance.LeaveRequest) string { return l.EmployeeName }),
		table.Text("Type", func(l attendance.LeaveRequest) string { return l.LeaveType }),
		table.Text("From", func(l attendance.LeaveRequest) string { return l.StartDate.Format(shared.DateLayout) }),
		table.Text("To", func(l attendance.LeaveRequest) string { return l.EndDate.Format(shared.DateLayout) }),
		table.Text("Days", leaveDays),
		table.Text("Reason", func(l attendance.LeaveRequest) string { return l.Reason }),
		leaveStatusColumn(),
		table.ActionColumn[attendance.LeaveRequest]{Header: "Actions", Render: func(l attendance.LeaveRequest) []table.Action {
			if l.Status != attendance.LeavePending {
				return nil
			}
			return []table.Action{
				{Label: "Approve", Method: http.MethodPost, URL: fmt.Sprintf("/attendance/leaves/%d/approve", l.ID), Tone: table.ToneSuccess},
				{Label: "Reject", Method: http.MethodPost, URL: fmt.Sprintf("/attendance/leaves/%d/reject", l.ID), Tone: table.ToneDanger},
			}
		}},
	}
}

func myLeaveColumns() []table.Column[attendance.LeaveRequest] {
	return []table.Column[attendance.LeaveRequest]{
		table.Text("Type", func(l attendance.LeaveRequest) string { return l.LeaveType }),
		table.Text("From", func(l attendance.LeaveRequest) string { return l.StartDate.Format(shared.DateLayout) }),
		table.Text("To", func(l attendance.LeaveRequest) string { return l.EndDate.Format(shared.DateLayout) }),
		table.Text("Days", leaveDays),
		leaveStatusColumn(),
		table.Text("Comment", func(l attendance.LeaveRequest) string { return l.Comment }),
	}
}

func statusColumn() table.DataColumn[attendance.Record] {
	return table.Badge("Status", func(r attendance.Record) string { return string(r.Status) }, func(s string) table.Tone {
		switch attendance.Status(s) {
		case attendance.StatusPresent:
			return table.ToneSuccess
		case attendance.StatusAbsent:
			return table.ToneDanger
		case attendance.StatusLeave:
			return table.ToneWarning
		}
		return table.ToneNone
	})
}

func leaveStatusColumn() table.DataColumn[attendance.LeaveRequest] {
	return table.Badge("Status", func(l attendance.LeaveRequest) string { return string(l.Status) }, func(s string) table.Tone {
		switch attendance.LeaveStatus(s) {
		case attendance.LeaveApproved:
			return table.ToneSuccess
		case attendance.LeaveRejected:
			return table.ToneDanger
		case attendance.LeavePending:
			return table.ToneWarning
		}
		return table.ToneNone
	})
}

func leaveDays(l attendance.LeaveRequest) string {
	return strconv.FormatFloat(l.Days(), 'f', -1, 64)
}
