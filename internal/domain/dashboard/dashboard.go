package dashboard

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrTitleRequired   = errors.New("announcement title is required")
	ErrContentRequired = errors.New("announcement content is required")
)

const (
	maxTitleLen   = 120
	maxContentLen = 2000
)

type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

type StatCard struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change int    `json:"change"`
	Trend  Trend  `json:"trend"`
}

type EmployeeMetric struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	Attendance   string `json:"attendance"`
	Productivity string `json:"productivity"`
	LastActive   string `json:"lastActive"`
}

func (m EmployeeMetric) RowKey() string { return strconv.Itoa(m.ID) }

type Announcement struct {
	ID      int       `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

func (a Announcement) RowKey() string { return strconv.Itoa(a.ID) }

// AnalyticsTabs are the admin analytics sections.
var AnalyticsTabs = []string{"attendance", "performance", "payroll"}

type Service struct {
	now func() time.Time

	mu            sync.RWMutex
	announcements []Announcement
	nextID        int
}

func NewService() *Service {
	day := func(m time.Month, d int) time.Time { return time.Date(2023, m, d, 0, 0, 0, 0, time.UTC) }
	return &Service{
		now: time.Now,
		announcements: []Announcement{
			{ID: 1, Title: "Company Meeting", Content: "There will be a company-wide meeting on Friday at 3 PM.", Date: day(time.May, 20)},
			{ID: 2, Title: "Holiday Notice", Content: "The office will be closed on Monday for the national holiday.", Date: day(time.May, 18)},
			{ID: 3, Title: "New Health Benefits", Content: "New health benefits will be available starting next month.", Date: day(time.May, 15)},
		},
		nextID: 3,
	}
}

func (s *Service) Stats() []StatCard {
	return []StatCard{
		{Title: "Total Employees", Value: "48", Change: 5, Trend: TrendUp},
		{Title: "Average Attendance", Value: "92%", Change: 2, Trend: TrendUp},
		{Title: "This Month Payroll", Value: "$125,400", Change: 8, Trend: TrendUp},
		{Title: "Working Hours", Value: "176h", Change: 0, Trend: TrendNeutral},
	}
}

func (s *Service) Metrics() []EmployeeMetric {
	return []EmployeeMetric{
		{ID: 1, Name: "John Smith", Department: "Engineering", Attendance: "92%", Productivity: "87%", LastActive: "2 hours ago"},
		{ID: 2, Name: "Sarah Johnson", Department: "HR", Attendance: "96%", Productivity: "91%", LastActive: "40 minutes ago"},
		{ID: 3, Name: "Michael Brown", Department: "Marketing", Attendance: "89%", Productivity: "84%", LastActive: "1 day ago"},
		{ID: 4, Name: "Emily Davis", Department: "Sales", Attendance: "94%", Productivity: "88%", LastActive: "3 hours ago"},
		{ID: 5, Name: "David Wilson", Department: "Finance", Attendance: "97%", Productivity: "90%", LastActive: "5 hours ago"},
	}
}

// Announcements returns the announcements newest first.
func (s *Service) Announcements() []Announcement {
	s.mu.RLock()
	out := append([]Announcement(nil), s.announcements...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID > out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func (s *Service) Announce(title, content string) (Announcement, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" {
		return Announcement{}, ErrTitleRequired
	}
	if content == "" {
		return Announcement{}, ErrContentRequired
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a := Announcement{ID: s.nextID, Title: title, Content: content, Date: s.now().UTC()}
	s.announcements = append(s.announcements, a)
	return a, nil
}
