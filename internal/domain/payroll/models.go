package payroll

import (
	"strconv"
	"time"
)

// Record is one pay period for one employee. Amounts are monthly.
type Record struct {
	ID           int       `json:"id"`
	EmployeeID   int       `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	Department   string    `json:"department"`
	Position     string    `json:"position"`
	PayPeriod    string    `json:"payPeriod"`
	BaseSalary   float64   `json:"baseSalary"`
	OvertimePay  float64   `json:"overtimePay"`
	OvertimeHrs  float64   `json:"overtimeHours"`
	Bonus        float64   `json:"bonus"`
	Deductions   float64   `json:"deductions"`
	PayDate      time.Time `json:"payDate,omitzero"`
	Status       Status    `json:"status"`
}

func (r Record) RowKey() string { return strconv.Itoa(r.ID) }

// Summary backs the employee's overview cards.
type Summary struct {
	MonthlySalary float64 `json:"monthlySalary"`
	OvertimeHours float64 `json:"overtimeHours"`
	OvertimePay   float64 `json:"overtimePay"`
	YearToDate    float64 `json:"yearToDate"`
}
