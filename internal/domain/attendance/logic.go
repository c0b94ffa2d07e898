package attendance

import (
	"errors"
	"time"
)

var ErrEndBeforeStart = errors.New("end date before start date")

// CalculateDays returns inclusive day count between start and end.
func CalculateDays(start, end time.Time) (float64, error) {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return 0, ErrEndBeforeStart
	}
	return end.Sub(start).Hours()/24 + 1, nil
}

// WorkingDays counts Monday to Friday days in the month containing t.
func WorkingDays(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	n := 0
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
