package payroll

import "errors"

var (
	ErrRecordNotFound    = errors.New("payroll record not found")
	ErrAlreadyProcessed  = errors.New("payroll record already processed")
	ErrPayslipNotAllowed = errors.New("payslip belongs to another employee")
)
