package shared

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"ems/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field problems for one request. The zero value is usable.
type Validator struct {
	byField map[string][]string
}

func NewValidator() *Validator {
	return &Validator{}
}

// Check records reason against field unless ok holds.
func (v *Validator) Check(ok bool, field, reason string) bool {
	if ok {
		return true
	}
	if v.byField == nil {
		v.byField = map[string][]string{}
	}
	v.byField[field] = append(v.byField[field], reason)
	return false
}

func (v *Validator) Required(field, value, reason string) {
	v.Check(strings.TrimSpace(value) != "", field, reason)
}

// Enum passes empty values; anything else must equal one of allowed.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	found := value == ""
	for _, candidate := range allowed {
		found = found || value == candidate
	}
	v.Check(found, field, reason)
}

func (v *Validator) MaxLen(field, value string, n int) {
	v.Check(utf8.RuneCountInString(value) <= n, field, "must be at most "+strconv.Itoa(n)+" characters")
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	day, err := ParseDay(raw)
	if !v.Check(err == nil, field, "must be a valid date in YYYY-MM-DD format") {
		return time.Time{}, false
	}
	return day, true
}

func (v *Validator) HasIssues() bool {
	return len(v.byField) > 0
}

// Issues lists problems ordered by field, then reason.
func (v *Validator) Issues() []ValidationIssue {
	var out []ValidationIssue
	for field, reasons := range v.byField {
		for _, reason := range reasons {
			out = append(out, ValidationIssue{Field: field, Reason: reason})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// Reject writes a 400 validation envelope when there are issues.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "request validation failed",
		map[string]any{"fields": v.Issues()}, requestID)
	return true
}
