package metrics

import (
	"testing"
	"time"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 0)
	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordLogin(false)
	c.RecordLogout()

	snap := c.Snapshot()
	checks := map[string]uint64{
		"requestsTotal":     3,
		"errorsTotal":       1,
		"rateLimitedTotal":  1,
		"loginSuccessTotal": 1,
		"loginFailureTotal": 2,
		"logoutTotal":       1,
	}
	for key, want := range checks {
		if got := snap[key].(uint64); got != want {
			t.Fatalf("%s = %d, want %d", key, got, want)
		}
	}
	if avg := snap["avgDurationMs"].(float64); avg < 13 || avg > 14 {
		t.Fatalf("unexpected average %f", avg)
	}
}
