package payroll

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePayslip renders a one-page PDF payslip for a paid record.
func WritePayslip(w io.Writer, r Record) error {
	gross, deductions, net := ComputePayroll(r.BaseSalary, r.Lines())

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s - %s", r.PayPeriod, r.EmployeeName), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (#%d)", r.EmployeeName, r.EmployeeID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Department: %s, %s", r.Department, r.Position))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Pay period: %s", r.PayPeriod))
	pdf.Ln(7)
	if !r.PayDate.IsZero() {
		pdf.Cell(0, 8, fmt.Sprintf("Pay date: %s", r.PayDate.Format("Jan 02, 2006")))
		pdf.Ln(7)
	}
	pdf.Ln(3)

	rows := [][2]string{
		{"Base salary", FormatMoney(r.BaseSalary)},
		{"Overtime pay", FormatMoney(r.OvertimePay)},
		{"Bonus", FormatMoney(r.Bonus)},
		{"Gross", FormatMoney(gross)},
		{"Deductions", FormatMoney(deductions)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 8, row[0], "B", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, row[1], "B", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(60, 9, "Net pay", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 9, FormatMoney(net), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}

func PayslipFilename(r Record) string {
	return fmt.Sprintf("payslip-%d-%d.pdf", r.EmployeeID, r.ID)
}
