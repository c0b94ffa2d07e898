package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"ems/internal/domain/audit"
	"ems/internal/platform/requestctx"
)

// SessionKey is the fixed record name inside a client's storage namespace.
const SessionKey = "user"

const DefaultLoginDelay = 800 * time.Millisecond

// Store persists session records. Get reports ok=false when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type GateConfig struct {
	Key        string
	Store      Store
	Verifier   Verifier
	Recorder   audit.Recorder
	LoginDelay time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Gate owns the session of one client. Storage transitions and state
// changes happen under mu so the persisted record always mirrors user.
type Gate struct {
	key      string
	store    Store
	verifier Verifier
	recorder audit.Recorder
	delay    time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	user       *User
	restored   bool
	loggingIn  bool
	generation uint64
	closed     bool
	done       chan struct{}
	subs       map[int]chan State
	nextSub    int
}

func NewGate(cfg GateConfig) *Gate {
	g := &Gate{
		key:      cfg.Key,
		store:    cfg.Store,
		verifier: cfg.Verifier,
		recorder: cfg.Recorder,
		delay:    cfg.LoginDelay,
		logger:   cfg.Logger,
		now:      cfg.Now,
		done:     make(chan struct{}),
		subs:     map[int]chan State{},
	}
	if g.key == "" {
		g.key = SessionKey
	}
	if g.recorder == nil {
		g.recorder = audit.Discard{}
	}
	if g.delay < 0 {
		g.delay = 0
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// RestoreSession loads the persisted record once. A malformed record is
// removed and the gate ends logged out. Loading is always cleared.
func (g *Gate) RestoreSession(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.restored {
		return
	}
	defer func() {
		g.restored = true
		g.notifyLocked()
	}()

	raw, ok, err := g.store.Get(ctx, g.key)
	if err != nil {
		g.logger.Warn("session restore failed", "key", g.key, "err", err)
		return
	}
	if !ok {
		return
	}
	user, err := decodeUser(raw)
	if err != nil {
		g.logger.Warn("discarding persisted session", "key", g.key, "err", err)
		if err := g.store.Delete(ctx, g.key); err != nil {
			g.logger.Warn("session cleanup failed", "key", g.key, "err", err)
		}
		return
	}
	g.user = &user
}

// Login verifies the credentials after the configured delay. Only the most
// recent attempt may change the session; older ones return ErrLoginSuperseded.
func (g *Gate) Login(ctx context.Context, email, password string) (bool, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false, ErrGateClosed
	}
	g.generation++
	gen := g.generation
	g.loggingIn = true
	g.notifyLocked()
	g.mu.Unlock()

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			g.abandon(gen)
			return false, ctx.Err()
		case <-g.done:
			return false, ErrGateClosed
		case <-timer.C:
		}
	}

	user, verifyErr := g.verifier.Verify(email, password)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false, ErrGateClosed
	}
	if gen != g.generation {
		g.mu.Unlock()
		return false, ErrLoginSuperseded
	}
	if err := ctx.Err(); err != nil {
		g.loggingIn = false
		g.notifyLocked()
		g.mu.Unlock()
		return false, err
	}

	evt := g.event(ctx, email)
	if verifyErr != nil {
		g.loggingIn = false
		g.notifyLocked()
		g.mu.Unlock()
		evt.Action, evt.Status = audit.ActionFailedLogin, audit.StatusFailed
		g.record(ctx, evt)
		return false, nil
	}

	payload, err := json.Marshal(user)
	if err == nil {
		err = g.store.Set(ctx, g.key, payload)
	}
	g.loggingIn = false
	if err != nil {
		g.notifyLocked()
		g.mu.Unlock()
		return false, err
	}
	g.user = &user
	g.restored = true
	g.notifyLocked()
	g.mu.Unlock()

	evt.UserID, evt.Action, evt.Status = user.ID, audit.ActionLogin, audit.StatusSuccess
	g.record(ctx, evt)
	return true, nil
}

// Logout clears the session and invalidates in-flight logins. The error
// only reports a failure to remove the persisted record.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	g.generation++
	g.loggingIn = false
	g.restored = true
	prev := g.user
	g.user = nil
	err := g.store.Delete(ctx, g.key)
	g.notifyLocked()
	g.mu.Unlock()

	if prev != nil {
		evt := g.event(ctx, prev.Email)
		evt.UserID, evt.Action, evt.Status = prev.ID, audit.ActionLogout, audit.StatusSuccess
		g.record(ctx, evt)
	}
	return err
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Gate) IsAuthenticated() bool { return g.State().Authenticated() }

func (g *Gate) IsLoading() bool { return g.State().Loading }

func (g *Gate) User() (User, bool) {
	st := g.State()
	if st.User == nil {
		return User{}, false
	}
	return *st.User, true
}

// Subscribe delivers the latest state after every transition. Slow readers
// only ever see the most recent value. The channel closes with the gate.
func (g *Gate) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		close(ch)
		return ch, func() {}
	}
	id := g.nextSub
	g.nextSub++
	g.subs[id] = ch
	return ch, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if c, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(c)
		}
	}
}

// Close tears the gate down. Pending logins return ErrGateClosed and their
// results are discarded. The persisted record is left in place.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.generation++
	close(g.done)
	for id, ch := range g.subs {
		close(ch)
		delete(g.subs, id)
	}
}

func (g *Gate) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Gate) abandon(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen == g.generation && !g.closed {
		g.loggingIn = false
		g.notifyLocked()
	}
}

func (g *Gate) stateLocked() State {
	st := State{Loading: !g.restored || g.loggingIn}
	if g.user != nil {
		u := *g.user
		st.User = &u
	}
	return st
}

func (g *Gate) notifyLocked() {
	st := g.stateLocked()
	for _, ch := range g.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (g *Gate) event(ctx context.Context, email string) audit.Event {
	return audit.Event{
		Email:     email,
		Timestamp: g.now().UTC(),
		IP:        requestctx.GetClientIP(ctx),
		RequestID: requestctx.GetRequestID(ctx),
	}
}

func (g *Gate) record(ctx context.Context, evt audit.Event) {
	if err := g.recorder.Record(context.WithoutCancel(ctx), evt); err != nil {
		g.logger.Warn("audit record failed", "action", evt.Action, "err", err)
	}
}

func decodeUser(raw []byte) (User, error) {
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return User{}, ErrMalformedSession
	}
	if user.Email == "" || !user.Role.Valid() {
		return User{}, ErrMalformedSession
	}
	return user, nil
}
