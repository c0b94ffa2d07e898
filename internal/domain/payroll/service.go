package payroll

import (
	"sort"
	"sync"
	"time"

	"ems/internal/domain/core"
)

// Service holds the current pay run and the payment history in memory.
type Service struct {
	mu      sync.RWMutex
	current []Record
	history []Record
	now     func() time.Time
}

func NewService(directory *core.Directory) *Service {
	s := &Service{now: time.Now}
	s.seed(directory)
	return s
}

func (s *Service) seed(directory *core.Directory) {
	current := map[int]struct{ ot, hrs float64 }{
		101: {1400, 12.5}, 102: {0, 0}, 103: {900, 8}, 104: {1200, 10.5}, 105: {600, 5},
	}
	history := map[int]struct{ ot, bonus, ded float64 }{
		101: {1200, 3000, 1850}, 102: {0, 2000, 1600}, 103: {800, 1500, 1400}, 104: {1500, 4000, 1300}, 105: {500, 2000, 1700},
	}
	deductions := map[int]float64{101: 1850, 102: 1600, 103: 1400, 104: 1300, 105: 1700}
	mayPay := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, e := range directory.List() {
		c := current[e.ID]
		s.current = append(s.current, Record{
			ID: e.ID - 100, EmployeeID: e.ID, EmployeeName: e.Name, Department: e.Department, Position: e.Position,
			PayPeriod: "June 2023", BaseSalary: e.MonthlySalary(), OvertimePay: c.ot, OvertimeHrs: c.hrs,
			Deductions: deductions[e.ID], Status: StatusPending,
		})
		h := history[e.ID]
		s.history = append(s.history, Record{
			ID: e.ID, EmployeeID: e.ID, EmployeeName: e.Name, Department: e.Department, Position: e.Position,
			PayPeriod: "May 2023", BaseSalary: e.MonthlySalary(), OvertimePay: h.ot, Bonus: h.bonus,
			Deductions: h.ded, PayDate: mayPay, Status: StatusPaid,
		})
	}

	if john, err := directory.Get(101); err == nil {
		earlier := []struct {
			id      int
			period  string
			ot, ded float64
			payDate time.Time
		}{
			{201, "April 2023", 950, 1820, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)},
			{202, "March 2023", 1050, 1800, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
		}
		for _, p := range earlier {
			s.history = append(s.history, Record{
				ID: p.id, EmployeeID: john.ID, EmployeeName: john.Name, Department: john.Department, Position: john.Position,
				PayPeriod: p.period, BaseSalary: john.MonthlySalary(), OvertimePay: p.ot, Deductions: p.ded,
				PayDate: p.payDate, Status: StatusPaid,
			})
		}
	}
}

func (s *Service) Current() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.current...)
}

// History returns paid records, newest pay date first.
func (s *Service) History() []Record {
	s.mu.RLock()
	out := append([]Record(nil), s.history...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].PayDate.After(out[j].PayDate) })
	return out
}

func (s *Service) EmployeeHistory(employeeID int) []Record {
	var out []Record
	for _, r := range s.History() {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out
}

// Process marks a pending record of the current run as paid and moves a
// copy into the history.
func (s *Service) Process(id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.current {
		if s.current[i].ID != id {
			continue
		}
		if s.current[i].Status != StatusPending {
			return s.current[i], ErrAlreadyProcessed
		}
		s.processLocked(i)
		return s.current[i], nil
	}
	return Record{}, ErrRecordNotFound
}

// ProcessAll pays every pending record and returns how many were paid.
func (s *Service) ProcessAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.current {
		if s.current[i].Status == StatusPending {
			s.processLocked(i)
			n++
		}
	}
	return n
}

func (s *Service) processLocked(i int) {
	s.current[i].Status = StatusPaid
	s.current[i].PayDate = s.now().UTC().Truncate(24 * time.Hour)
	paid := s.current[i]
	paid.ID = 1000 + paid.ID
	s.history = append(s.history, paid)
}

// Payslip returns a paid record. When employeeID is non-zero the record must
// belong to that employee.
func (s *Service) Payslip(id, employeeID int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.history {
		if r.ID != id {
			continue
		}
		if employeeID != 0 && r.EmployeeID != employeeID {
			return Record{}, ErrPayslipNotAllowed
		}
		return r, nil
	}
	return Record{}, ErrRecordNotFound
}

func (s *Service) Summary(employeeID int) Summary {
	var sum Summary
	s.mu.RLock()
	for _, r := range s.current {
		if r.EmployeeID == employeeID {
			sum.MonthlySalary = r.BaseSalary
			sum.OvertimeHours = r.OvertimeHrs
			sum.OvertimePay = r.OvertimePay
		}
	}
	s.mu.RUnlock()
	for _, r := range s.EmployeeHistory(employeeID) {
		sum.YearToDate += r.GrossPay()
	}
	return sum
}
