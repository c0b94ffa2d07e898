package shared

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDay reads a calendar day in DateLayout as midnight UTC.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}
