package payroll

type Status string

const (
	StatusPaid    Status = "Paid"
	StatusPending Status = "Pending"
	StatusFailed  Status = "Failed"
)

const (
	ElementTypeEarning   = "earning"
	ElementTypeDeduction = "deduction"
)

const CurrencySymbol = "$"
