package payroll

import "fmt"

type InputLine struct {
	Type   string
	Amount float64
}

func ComputePayroll(baseSalary float64, inputs []InputLine) (gross, deductions, net float64) {
	gross = baseSalary
	for _, input := range inputs {
		switch input.Type {
		case ElementTypeEarning:
			gross += input.Amount
		case ElementTypeDeduction:
			deductions += input.Amount
		}
	}
	net = gross - deductions
	return gross, deductions, net
}

// Lines expands a record into the earning and deduction lines of its payslip.
func (r Record) Lines() []InputLine {
	return []InputLine{
		{Type: ElementTypeEarning, Amount: r.OvertimePay},
		{Type: ElementTypeEarning, Amount: r.Bonus},
		{Type: ElementTypeDeduction, Amount: r.Deductions},
	}
}

// NetPay is base + overtime + bonus - deductions.
func (r Record) NetPay() float64 {
	_, _, net := ComputePayroll(r.BaseSalary, r.Lines())
	return net
}

func (r Record) GrossPay() float64 {
	gross, _, _ := ComputePayroll(r.BaseSalary, r.Lines())
	return gross
}

func FormatMoney(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}
	digits := fmt.Sprintf("%d", whole)
	for i := len(digits) - 3; i > 0; i -= 3 {
		digits = digits[:i] + "," + digits[i:]
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, CurrencySymbol, digits, cents)
}
