// Package storage holds the key/value backends for persisted session records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ems/internal/platform/crypto"
)

var ErrEmptyKey = errors.New("key cannot be empty")

// Memory is an in-process store with optional expiry.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, items: map[string]memoryItem{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item := memoryItem{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		item.expiresAt = m.now().Add(m.ttl)
	}
	m.items[key] = item
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (m *Memory) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, item := range m.items {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Encrypted seals values before handing them to the wrapped store.
type Encrypted struct {
	next   backend
	sealer *crypto.Sealer
}

func NewEncrypted(next backend, sealer *crypto.Sealer) *Encrypted {
	return &Encrypted{next: next, sealer: sealer}
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := e.next.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := e.sealer.Open(raw)
	if err != nil {
		// An unreadable record reads as garbage so the caller can discard it.
		return []byte{}, true, nil
	}
	return plain, true, nil
}

func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := e.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal value: %w", err)
	}
	return e.next.Set(ctx, key, sealed)
}

func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.next.Delete(ctx, key)
}
