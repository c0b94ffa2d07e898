package activity

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ems/internal/domain/audit"
)

const TimestampLayout = "2006-01-02 15:04:05"

// Entry is one row of the activity log.
type Entry struct {
	Key       string    `json:"key"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ipAddress"`
	Status    string    `json:"status"`
}

func (e Entry) RowKey() string { return e.Key }

type ActionFilter struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var ActionFilters = []ActionFilter{
	{Value: "all", Label: "All Actions"},
	{Value: "Login", Label: "Login"},
	{Value: "Logout", Label: "Logout"},
	{Value: "Failed", Label: "Failed Attempts"},
	{Value: "Update", Label: "Updates"},
	{Value: "Generate", Label: "Reports"},
}

func ValidAction(action string) bool {
	for _, f := range ActionFilters {
		if f.Value == action {
			return true
		}
	}
	return false
}

type Query struct {
	Search string
	Action string
}

// Matches applies a case-insensitive search over username and action and
// a substring action filter, so "Login" also matches "Failed Login".
func (q Query) Matches(e Entry) bool {
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		if !strings.Contains(strings.ToLower(e.Username), term) && !strings.Contains(strings.ToLower(e.Action), term) {
			return false
		}
	}
	if q.Action != "" && q.Action != "all" && !strings.Contains(e.Action, q.Action) {
		return false
	}
	return true
}

type Stats struct {
	TodayLogins    int `json:"todayLogins"`
	UniqueUsers    int `json:"uniqueUsers"`
	FailedAttempts int `json:"failedAttempts"`
}

// Service merges the seeded history with recorded authentication events.
type Service struct {
	reader audit.Reader
	seed   []Entry
	limit  int
	now    func() time.Time
}

func NewService(reader audit.Reader) *Service {
	return &Service{reader: reader, seed: SeedEntries(), limit: 500, now: time.Now}
}

func SeedEntries() []Entry {
	at := func(h, m, s int) time.Time { return time.Date(2023, time.May, 20, h, m, s, 0, time.UTC) }
	rows := []Entry{
		{Username: "admin@example.com", Action: "Login", Timestamp: at(8, 30, 45), IPAddress: "192.168.1.1", Status: audit.StatusSuccess},
		{Username: "john@example.com", Action: "Login", Timestamp: at(9, 15, 20), IPAddress: "192.168.1.2", Status: audit.StatusSuccess},
		{Username: "sarah@example.com", Action: "Failed Login", Timestamp: at(10, 5, 12), IPAddress: "192.168.1.3", Status: audit.StatusFailed},
		{Username: "admin@example.com", Action: "View Payroll", Timestamp: at(11, 30, 45), IPAddress: "192.168.1.1", Status: audit.StatusSuccess},
		{Username: "john@example.com", Action: "Update Profile", Timestamp: at(13, 45, 22), IPAddress: "192.168.1.2", Status: audit.StatusSuccess},
		{Username: "admin@example.com", Action: "Generate Report", Timestamp: at(14, 30, 45), IPAddress: "192.168.1.1", Status: audit.StatusSuccess},
		{Username: "jane@example.com", Action: "Login", Timestamp: at(15, 10, 33), IPAddress: "192.168.1.4", Status: audit.StatusSuccess},
		{Username: "admin@example.com", Action: "Logout", Timestamp: at(17, 30, 45), IPAddress: "192.168.1.1", Status: audit.StatusSuccess},
		{Username: "john@example.com", Action: "Logout", Timestamp: at(18, 5, 12), IPAddress: "192.168.1.2", Status: audit.StatusSuccess},
		{Username: "unknown", Action: "Failed Login", Timestamp: at(20, 15, 30), IPAddress: "192.168.1.5", Status: audit.StatusFailed},
	}
	for i := range rows {
		rows[i].Key = fmt.Sprintf("seed-%d", i+1)
	}
	return rows
}

func FromEvent(evt audit.Event) Entry {
	username := evt.Email
	if username == "" {
		username = "unknown"
	}
	status := evt.Status
	if status == "" {
		status = audit.StatusSuccess
	}
	return Entry{
		Key:       fmt.Sprintf("evt-%d", evt.ID),
		Username:  username,
		Action:    actionLabel(evt.Action),
		Timestamp: evt.Timestamp,
		IPAddress: evt.IP,
		Status:    status,
	}
}

func actionLabel(action string) string {
	switch action {
	case audit.ActionLogin:
		return "Login"
	case audit.ActionLogout:
		return "Logout"
	case audit.ActionFailedLogin:
		return "Failed Login"
	default:
		return action
	}
}

// All returns every entry, newest first.
func (s *Service) All(ctx context.Context) ([]Entry, error) {
	out := append([]Entry(nil), s.seed...)
	if s.reader != nil {
		events, err := s.reader.List(ctx, audit.Filter{}, s.limit)
		if err != nil {
			return nil, fmt.Errorf("list activity events: %w", err)
		}
		for _, evt := range events {
			out = append(out, FromEvent(evt))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *Service) List(ctx context.Context, q Query) ([]Entry, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	now := s.now()
	users := map[string]struct{}{}
	var stats Stats
	for _, e := range all {
		users[e.Username] = struct{}{}
		if e.Status == audit.StatusFailed {
			stats.FailedAttempts++
		}
		if e.Action == "Login" && sameDay(e.Timestamp, now) {
			stats.TodayLogins++
		}
	}
	stats.UniqueUsers = len(users)
	return stats, nil
}

func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"username", "action", "timestamp", "ip_address", "status"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{e.Username, e.Action, e.Timestamp.UTC().Format(TimestampLayout), e.IPAddress, e.Status}
		for i := range row {
			row[i] = spreadsheetSafe(row[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// spreadsheetSafe prefixes cells that a spreadsheet would evaluate as a formula.
func spreadsheetSafe(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
