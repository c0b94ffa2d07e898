package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ems/internal/domain/audit"
)

const (
	DefaultKeyPrefix = "ems:session:"
	DefaultMaxGates  = 10000
)

type ManagerConfig struct {
	Store       Store
	Verifier    Verifier
	Recorder    audit.Recorder
	KeyPrefix   string
	LoginDelay  time.Duration
	IdleTimeout time.Duration
	MaxGates    int
	Logger      *slog.Logger
	Now         func() time.Time
}

type gateEntry struct {
	gate     *Gate
	lastSeen time.Time
}

// Manager is the root session context: one Gate per client session id.
type Manager struct {
	cfg ManagerConfig

	mu     sync.Mutex
	gates  map[string]*gateEntry
	closed bool
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxGates <= 0 {
		cfg.MaxGates = DefaultMaxGates
	}
	return &Manager{cfg: cfg, gates: map[string]*gateEntry{}}
}

func (m *Manager) Key(sid string) string {
	return m.cfg.KeyPrefix + sid + ":" + SessionKey
}

// Gate returns the gate for sid, creating and restoring it on first use.
// Callers arriving while the restore runs observe a loading state.
func (m *Manager) Gate(ctx context.Context, sid string) (*Gate, error) {
	if !ValidSessionID(sid) {
		return nil, ErrInvalidSessionID
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	now := m.cfg.Now()
	if e, ok := m.gates[sid]; ok {
		e.lastSeen = now
		m.mu.Unlock()
		return e.gate, nil
	}
	var evicted *Gate
	if len(m.gates) >= m.cfg.MaxGates {
		evicted = m.evictOldestLocked()
	}
	gate := NewGate(GateConfig{
		Key:        m.Key(sid),
		Store:      m.cfg.Store,
		Verifier:   m.cfg.Verifier,
		Recorder:   m.cfg.Recorder,
		LoginDelay: m.cfg.LoginDelay,
		Logger:     m.cfg.Logger.With("session", shortID(sid)),
		Now:        m.cfg.Now,
	})
	m.gates[sid] = &gateEntry{gate: gate, lastSeen: now}
	m.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}

	gate.RestoreSession(context.WithoutCancel(ctx))
	return gate, nil
}

// evictOldestLocked drops the least recently seen gate that is not mid-login.
// Its persisted record survives and is restored on next access.
func (m *Manager) evictOldestLocked() *Gate {
	var oldestSID string
	var oldest *gateEntry
	for sid, e := range m.gates {
		if e.gate.State().Loading {
			continue
		}
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestSID, oldest = sid, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(m.gates, oldestSID)
	return oldest.gate
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gates)
}

// Sweep closes gates idle for longer than the idle timeout. Their
// persisted records survive and are restored on next access.
func (m *Manager) Sweep(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	var idle []*Gate
	m.mu.Lock()
	for sid, e := range m.gates {
		if now.Sub(e.lastSeen) > m.cfg.IdleTimeout && !e.gate.State().Loading {
			idle = append(idle, e.gate)
			delete(m.gates, sid)
		}
	}
	m.mu.Unlock()

	for _, g := range idle {
		g.Close()
	}
	if len(idle) > 0 {
		m.cfg.Logger.Debug("closed idle session gates", "count", len(idle))
	}
	return len(idle)
}

func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	gates := m.gates
	m.gates = map[string]*gateEntry{}
	m.mu.Unlock()

	for _, e := range gates {
		e.gate.Close()
	}
}

func shortID(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
