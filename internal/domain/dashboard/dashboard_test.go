package dashboard

import (
	"errors"
	"testing"
	"time"
)

func TestAnnouncementsNewestFirst(t *testing.T) {
	s := NewService()
	list := s.Announcements()
	if len(list) != 3 || list[0].Title != "Company Meeting" {
		t.Fatalf("unexpected announcements %+v", list)
	}
}

func TestAnnounce(t *testing.T) {
	s := NewService()
	s.now = func() time.Time { return time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC) }

	a, err := s.Announce("  Town hall ", "All hands on Thursday.")
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if a.ID != 4 || a.Title != "Town hall" {
		t.Fatalf("unexpected announcement %+v", a)
	}
	if s.Announcements()[0].ID != 4 {
		t.Fatal("new announcement should be listed first")
	}

	if _, err := s.Announce(" ", "x"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected title required, got %v", err)
	}
	if _, err := s.Announce("x", ""); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected content required, got %v", err)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	s := NewService()
	if len(s.Stats()) != 4 {
		t.Fatal("expected four stat cards")
	}
	seen := map[string]bool{}
	for _, m := range s.Metrics() {
		if seen[m.RowKey()] {
			t.Fatalf("duplicate metric key %s", m.RowKey())
		}
		seen[m.RowKey()] = true
	}
}
