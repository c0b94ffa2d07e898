package payroll

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"ems/internal/domain/core"
)

func TestComputePayroll(t *testing.T) {
	inputs := []InputLine{
		{Type: ElementTypeEarning, Amount: 200},
		{Type: ElementTypeEarning, Amount: 50},
		{Type: ElementTypeDeduction, Amount: 100},
	}

	gross, deductions, net := ComputePayroll(1000, inputs)
	if gross != 1250 {
		t.Fatalf("expected gross 1250, got %v", gross)
	}
	if deductions != 100 {
		t.Fatalf("expected deductions 100, got %v", deductions)
	}
	if net != 1150 {
		t.Fatalf("expected net 1150, got %v", net)
	}
}

func TestComputePayrollIgnoresUnknownTypes(t *testing.T) {
	inputs := []InputLine{
		{Type: "bonus", Amount: 100},
		{Type: ElementTypeDeduction, Amount: 25},
	}
	gross, deductions, net := ComputePayroll(500, inputs)
	if gross != 500 || deductions != 25 || net != 475 {
		t.Fatalf("unexpected result %v %v %v", gross, deductions, net)
	}
}

func TestRecordNetPay(t *testing.T) {
	r := Record{BaseSalary: 6250, OvertimePay: 1200, Bonus: 3000, Deductions: 1850}
	if r.NetPay() != 8600 {
		t.Fatalf("expected net 8600, got %v", r.NetPay())
	}
	if r.GrossPay() != 10450 {
		t.Fatalf("expected gross 10450, got %v", r.GrossPay())
	}
}

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		0:         "$0.00",
		6250:      "$6,250.00",
		125400:    "$125,400.00",
		1234567.5: "$1,234,567.50",
		-1820:     "-$1,820.00",
	}
	for in, want := range tests {
		if got := FormatMoney(in); got != want {
			t.Fatalf("FormatMoney(%v) = %s, want %s", in, got, want)
		}
	}
}

func newTestService() *Service {
	s := NewService(core.NewDirectory(core.SeedEmployees()))
	s.now = func() time.Time { return time.Date(2023, 6, 30, 15, 0, 0, 0, time.UTC) }
	return s
}

func TestProcess(t *testing.T) {
	s := newTestService()
	before := len(s.History())

	rec, err := s.Process(1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Status != StatusPaid || rec.PayDate.IsZero() {
		t.Fatalf("expected paid record, got %+v", rec)
	}
	if _, err := s.Process(1); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}
	if _, err := s.Process(99); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(s.History()) != before+1 {
		t.Fatal("processed record should be added to history")
	}
	if n := s.ProcessAll(); n != 4 {
		t.Fatalf("expected 4 remaining pending records, got %d", n)
	}
	if n := s.ProcessAll(); n != 0 {
		t.Fatalf("second run should pay nothing, got %d", n)
	}
}

func TestEmployeeHistoryAndPayslipOwnership(t *testing.T) {
	s := newTestService()
	mine := s.EmployeeHistory(101)
	if len(mine) != 3 {
		t.Fatalf("expected 3 slips for employee 101, got %d", len(mine))
	}
	if mine[0].PayPeriod != "May 2023" {
		t.Fatalf("expected newest first, got %s", mine[0].PayPeriod)
	}

	if _, err := s.Payslip(201, 101); err != nil {
		t.Fatalf("owner should get slip: %v", err)
	}
	if _, err := s.Payslip(102, 101); !errors.Is(err, ErrPayslipNotAllowed) {
		t.Fatalf("expected ownership error, got %v", err)
	}
	if _, err := s.Payslip(102, 0); err != nil {
		t.Fatalf("admin should get any slip: %v", err)
	}
	if _, err := s.Payslip(1, 0); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("pending records have no payslip, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	s := newTestService()
	sum := s.Summary(101)
	if sum.MonthlySalary != 6250 || sum.OvertimeHours != 12.5 || sum.OvertimePay != 1400 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	var want float64
	for _, r := range s.EmployeeHistory(101) {
		want += r.GrossPay()
	}
	if sum.YearToDate != want || want == 0 {
		t.Fatalf("year to date = %v, want %v", sum.YearToDate, want)
	}
}

func TestWritePayslip(t *testing.T) {
	s := newTestService()
	rec, err := s.Payslip(101, 101)
	if err != nil {
		t.Fatalf("payslip: %v", err)
	}
	var buf bytes.Buffer
	if err := WritePayslip(&buf, rec); err != nil {
		t.Fatalf("write payslip: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected pdf output, got %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if PayslipFilename(rec) != "payslip-101-101.pdf" {
		t.Fatalf("unexpected filename %s", PayslipFilename(rec))
	}
}
