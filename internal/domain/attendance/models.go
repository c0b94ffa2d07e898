package attendance

import (
	"fmt"
	"strconv"
	"time"
)

const TimeLayout = "03:04 PM"

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLeave   Status = "Leave"
)

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

// Record is one employee's attendance for one day.
type Record struct {
	ID           int        `json:"id"`
	EmployeeID   int        `json:"employeeId"`
	EmployeeName string     `json:"employeeName"`
	Department   string     `json:"department"`
	Date         time.Time  `json:"date"`
	CheckIn      *time.Time `json:"checkIn,omitempty"`
	CheckOut     *time.Time `json:"checkOut,omitempty"`
	Status       Status     `json:"status"`
}

func (r Record) RowKey() string { return strconv.Itoa(r.ID) }

// TotalHours is the worked duration in hours, "In Progress" while checked in.
func (r Record) TotalHours() string {
	switch {
	case r.CheckIn == nil:
		return "0"
	case r.CheckOut == nil:
		return "In Progress"
	default:
		return fmt.Sprintf("%.2f", r.CheckOut.Sub(*r.CheckIn).Hours())
	}
}

func FormatClock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(TimeLayout)
}

type LeaveRequest struct {
	ID           int         `json:"id"`
	EmployeeID   int         `json:"employeeId"`
	EmployeeName string      `json:"employeeName"`
	Department   string      `json:"department"`
	LeaveType    string      `json:"leaveType"`
	StartDate    time.Time   `json:"startDate"`
	EndDate      time.Time   `json:"endDate"`
	Reason       string      `json:"reason"`
	Status       LeaveStatus `json:"status"`
	Comment      string      `json:"comment,omitempty"`
}

func (l LeaveRequest) RowKey() string { return strconv.Itoa(l.ID) }

// Days returns the inclusive day count of the request.
func (l LeaveRequest) Days() float64 {
	days, err := CalculateDays(l.StartDate, l.EndDate)
	if err != nil {
		return 0
	}
	return days
}

// Today is the check-in panel state for one employee.
type Today struct {
	Date       time.Time  `json:"date"`
	CheckedIn  bool       `json:"checkedIn"`
	CheckedOut bool       `json:"checkedOut"`
	CheckIn    *time.Time `json:"checkIn,omitempty"`
	CheckOut   *time.Time `json:"checkOut,omitempty"`
}

type MonthlyStats struct {
	WorkingDays int `json:"workingDays"`
	Present     int `json:"present"`
	Absent      int `json:"absent"`
	Leave       int `json:"leave"`
}
