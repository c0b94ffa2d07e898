package audit

import (
	"context"
	"sync"
)

// DefaultLogCapacity bounds the in-memory log.
const DefaultLogCapacity = 1000

// Log keeps the most recent events in memory, newest last.
type Log struct {
	mu       sync.RWMutex
	capacity int
	nextID   int64
	events   []Event
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity}
}

func (l *Log) Record(_ context.Context, evt Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	evt.ID = l.nextID
	l.events = append(l.events, evt)
	if over := len(l.events) - l.capacity; over > 0 {
		l.events = append(l.events[:0:0], l.events[over:]...)
	}
	return nil
}

// List returns matching events newest first. limit <= 0 returns all.
func (l *Log) List(_ context.Context, filter Filter, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0; i-- {
		if !filter.Match(l.events[i]) {
			continue
		}
		out = append(out, l.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
