package attendance

import (
	"sort"
	"sync"
	"time"

	"ems/internal/domain/core"
)

// Service keeps attendance records and leave requests in memory.
type Service struct {
	directory *core.Directory
	now       func() time.Time

	mu      sync.RWMutex
	records []Record
	leaves  []LeaveRequest
	nextID  int
}

func NewService(directory *core.Directory) *Service {
	s := &Service{directory: directory, now: time.Now}
	s.seed()
	return s
}

func (s *Service) seed() {
	at := func(day, hour, minute int, month time.Month) *time.Time {
		t := time.Date(2023, month, day, hour, minute, 0, 0, time.UTC)
		return &t
	}
	june1 := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	daily := []struct {
		employee int
		in, out  *time.Time
		status   Status
	}{
		{101, at(1, 8, 55, time.June), at(1, 17, 5, time.June), StatusPresent},
		{102, at(1, 9, 2, time.June), at(1, 17, 30, time.June), StatusPresent},
		{103, nil, nil, StatusAbsent},
		{104, at(1, 8, 45, time.June), at(1, 16, 50, time.June), StatusPresent},
		{105, at(1, 9, 15, time.June), nil, StatusPresent},
	}
	for _, d := range daily {
		s.addRecordLocked(d.employee, june1, d.in, d.out, d.status)
	}
	history := []struct {
		day     int
		in, out *time.Time
		status  Status
	}{
		{31, at(31, 9, 2, time.May), at(31, 17, 10, time.May), StatusPresent},
		{30, at(30, 8, 47, time.May), at(30, 17, 15, time.May), StatusPresent},
		{29, at(29, 9, 5, time.May), at(29, 17, 30, time.May), StatusPresent},
		{26, nil, nil, StatusLeave},
	}
	for _, h := range history {
		s.addRecordLocked(101, time.Date(2023, time.May, h.day, 0, 0, 0, 0, time.UTC), h.in, h.out, h.status)
	}

	day := func(month time.Month, d int) time.Time { return time.Date(2023, month, d, 0, 0, 0, 0, time.UTC) }
	leaves := []LeaveRequest{
		{ID: 1, EmployeeID: 102, LeaveType: "Vacation", StartDate: day(time.June, 15), EndDate: day(time.June, 20), Reason: "Family vacation", Status: LeavePending},
		{ID: 2, EmployeeID: 104, LeaveType: "Sick Leave", StartDate: day(time.June, 10), EndDate: day(time.June, 12), Reason: "Fever and cold", Status: LeaveApproved},
		{ID: 3, EmployeeID: 101, LeaveType: "Personal Leave", StartDate: day(time.June, 25), EndDate: day(time.June, 25), Reason: "Personal reasons", Status: LeaveRejected, Comment: "Insufficient team coverage"},
		{ID: 4, EmployeeID: 101, LeaveType: "Sick Leave", StartDate: day(time.May, 26), EndDate: day(time.May, 26), Reason: "Migraine", Status: LeaveApproved},
	}
	for _, l := range leaves {
		if e, err := s.directory.Get(l.EmployeeID); err == nil {
			l.EmployeeName, l.Department = e.Name, e.Department
		}
		s.leaves = append(s.leaves, l)
	}
}

func (s *Service) addRecordLocked(employeeID int, date time.Time, in, out *time.Time, status Status) Record {
	s.nextID++
	r := Record{ID: s.nextID, EmployeeID: employeeID, Date: truncateDay(date), CheckIn: in, CheckOut: out, Status: status}
	if e, err := s.directory.Get(employeeID); err == nil {
		r.EmployeeName, r.Department = e.Name, e.Department
	}
	s.records = append(s.records, r)
	return r
}

// LatestDay is the most recent day with any attendance record.
func (s *Service) LatestDay() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for _, r := range s.records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

func (s *Service) Daily(day time.Time) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if sameDay(r.Date, day) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// Mine returns an employee's records, newest first.
func (s *Service) Mine(employeeID int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *Service) Leaves() []LeaveRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LeaveRequest(nil), s.leaves...)
}

func (s *Service) MyLeaves(employeeID int) []LeaveRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LeaveRequest
	for _, l := range s.leaves {
		if l.EmployeeID == employeeID {
			out = append(out, l)
		}
	}
	return out
}

// Upcoming returns approved leaves of the employee starting after now.
func (s *Service) Upcoming(employeeID int) []LeaveRequest {
	now := s.now()
	var out []LeaveRequest
	for _, l := range s.MyLeaves(employeeID) {
		if l.Status == LeaveApproved && l.StartDate.After(now) {
			out = append(out, l)
		}
	}
	return out
}

// Decide approves or rejects a pending leave request.
func (s *Service) Decide(id int, approve bool, comment string) (LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leaves {
		if s.leaves[i].ID != id {
			continue
		}
		if s.leaves[i].Status != LeavePending {
			return s.leaves[i], ErrLeaveNotPending
		}
		s.leaves[i].Status = LeaveRejected
		if approve {
			s.leaves[i].Status = LeaveApproved
		}
		s.leaves[i].Comment = comment
		return s.leaves[i], nil
	}
	return LeaveRequest{}, ErrLeaveNotFound
}

func (s *Service) Today(employeeID int) Today {
	now := s.now()
	out := Today{Date: truncateDay(now)}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.todayLocked(employeeID, now); ok {
		out.CheckIn, out.CheckOut = r.CheckIn, r.CheckOut
		out.CheckedIn = r.CheckIn != nil
		out.CheckedOut = r.CheckOut != nil
	}
	return out
}

func (s *Service) CheckIn(employeeID int) (Record, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.todayLocked(employeeID, now); ok {
		if r.CheckIn != nil {
			return *r, ErrAlreadyCheckedIn
		}
		r.CheckIn, r.Status = &now, StatusPresent
		return *r, nil
	}
	return s.addRecordLocked(employeeID, now, &now, nil, StatusPresent), nil
}

func (s *Service) CheckOut(employeeID int) (Record, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.todayLocked(employeeID, now)
	if !ok || r.CheckIn == nil {
		return Record{}, ErrNotCheckedIn
	}
	if r.CheckOut != nil {
		return *r, ErrAlreadyCheckedOut
	}
	r.CheckOut = &now
	return *r, nil
}

// Stats summarises the month of the employee's latest record.
func (s *Service) Stats(employeeID int) MonthlyStats {
	mine := s.Mine(employeeID)
	if len(mine) == 0 {
		return MonthlyStats{WorkingDays: WorkingDays(s.now())}
	}
	month := mine[0].Date
	stats := MonthlyStats{WorkingDays: WorkingDays(month)}
	for _, r := range mine {
		if r.Date.Year() != month.Year() || r.Date.Month() != month.Month() {
			continue
		}
		switch r.Status {
		case StatusPresent:
			stats.Present++
		case StatusAbsent:
			stats.Absent++
		case StatusLeave:
			stats.Leave++
		}
	}
	return stats
}

func (s *Service) todayLocked(employeeID int, now time.Time) (*Record, bool) {
	for i := range s.records {
		if s.records[i].EmployeeID == employeeID && sameDay(s.records[i].Date, now) {
			return &s.records[i], true
		}
	}
	return nil, false
}
