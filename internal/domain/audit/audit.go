package audit

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionFailedLogin = "failed_login"
)

const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// Event is one authentication transition.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	UserID    int       `json:"userId"`
	Email     string    `json:"email"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}

type Filter struct {
	Action string
	Email  string
	Since  time.Time
}

func (f Filter) Match(evt Event) bool {
	if f.Action != "" && evt.Action != f.Action {
		return false
	}
	if f.Email != "" && !strings.EqualFold(evt.Email, f.Email) {
		return false
	}
	if !f.Since.IsZero() && evt.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

type Recorder interface {
	Record(ctx context.Context, evt Event) error
}

type Reader interface {
	List(ctx context.Context, filter Filter, limit int) ([]Event, error)
}

// Multi fans an event out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, evt Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) error { return nil }
