package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/audit"
	"ems/internal/platform/requestctx"
	"ems/internal/platform/storage"
)

type failingStore struct {
	*storage.Memory
	setErr error
}

func (f failingStore) Set(context.Context, string, []byte) error { return f.setErr }

// blockingVerifier blocks Verify for the named email until release is closed.
type blockingVerifier struct {
	next    Verifier
	email   string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingVerifier) Verify(email, password string) (User, error) {
	if email == b.email {
		close(b.entered)
		<-b.release
	}
	return b.next.Verify(email, password)
}

type gateFixture struct {
	gate  *Gate
	store *storage.Memory
	log   *audit.Log
}

func newGateFixture(t *testing.T, verifier Verifier, delay time.Duration) gateFixture {
	t.Helper()
	if verifier == nil {
		verifier = testCredentials(t)
	}
	store := storage.NewMemory(0)
	log := audit.NewLog(0)
	gate := NewGate(GateConfig{
		Key:        "test:user",
		Store:      store,
		Verifier:   verifier,
		Recorder:   log,
		LoginDelay: delay,
	})
	t.Cleanup(gate.Close)
	return gateFixture{gate: gate, store: store, log: log}
}

func (f gateFixture) persisted(t *testing.T) (map[string]any, bool) {
	t.Helper()
	raw, ok, err := f.store.Get(context.Background(), "test:user")
	require.NoError(t, err)
	if !ok {
		return nil, false
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out, true
}

func TestGateStartsLoadingUntilRestored(t *testing.T) {
	f := newGateFixture(t, nil, 0)
	assert.True(t, f.gate.IsLoading())
	f.gate.RestoreSession(context.Background())
	assert.False(t, f.gate.IsLoading())
	assert.False(t, f.gate.IsAuthenticated())
}

func TestLoginWithValidCredentials(t *testing.T) {
	ctx := context.Background()
	for _, entry := range DefaultCredentials() {
		t.Run(entry.Email, func(t *testing.T) {
			f := newGateFixture(t, nil, time.Millisecond)
			f.gate.RestoreSession(ctx)

			ok, err := f.gate.Login(ctx, entry.Email, entry.Password)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, f.gate.IsAuthenticated())
			assert.False(t, f.gate.IsLoading())

			user, _ := f.gate.User()
			assert.Equal(t, entry.Role, user.Role)

			record, ok := f.persisted(t)
			require.True(t, ok)
			assert.Equal(t, entry.Email, record["email"])
			assert.NotContains(t, record, "password")
			assert.ElementsMatch(t, []string{"id", "name", "email", "role"}, keys(record))
		})
	}
}

func TestAdminLoginScenario(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t, nil, time.Millisecond)
	f.gate.RestoreSession(ctx)

	ok, err := f.gate.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	require.True(t, ok)
	user, _ := f.gate.User()
	assert.Equal(t, RoleAdmin, user.Role)

	g := newGateFixture(t, nil, time.Millisecond)
	g.gate.RestoreSession(ctx)
	ok, err = g.gate.Login(ctx, "admin@example.com", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	_, has := g.gate.User()
	assert.False(t, has)
	_, persisted := g.persisted(t)
	assert.False(t, persisted)
}

func TestFailedLoginLeavesPriorSession(t *testing.T) {
	ctx := requestctx.WithClientIP(context.Background(), "10.0.0.9")
	f := newGateFixture(t, nil, 0)
	f.gate.RestoreSession(ctx)

	ok, err := f.gate.Login(ctx, "john@example.com", "employee123")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.gate.Login(ctx, "admin@example.com", "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	user, has := f.gate.User()
	require.True(t, has)
	assert.Equal(t, "john@example.com", user.Email)
	record, _ := f.persisted(t)
	assert.Equal(t, "john@example.com", record["email"])

	events, _ := f.log.List(ctx, audit.Filter{}, 0)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionFailedLogin, events[0].Action)
	assert.Equal(t, audit.StatusFailed, events[0].Status)
	assert.Equal(t, "10.0.0.9", events[0].IP)
	assert.Equal(t, audit.ActionLogin, events[1].Action)
	assert.Equal(t, 2, events[1].UserID)
}

func TestRestoreSession(t *testing.T) {
	valid, _ := json.Marshal(User{ID: 1, Name: "Admin User", Email: "admin@example.com", Role: RoleAdmin})
	tests := []struct {
		name     string
		raw      []byte
		wantAuth bool
	}{
		{name: "absent"},
		{name: "valid", raw: valid, wantAuth: true},
		{name: "garbage", raw: []byte("{not json")},
		{name: "empty", raw: []byte{}},
		{name: "missing email", raw: []byte(`{"id":1,"role":"admin"}`)},
		{name: "unknown role", raw: []byte(`{"id":1,"email":"a@b.c","role":"root"}`)},
		{name: "wrong shape", raw: []byte(`[1,2,3]`)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newGateFixture(t, nil, 0)
			if tc.raw != nil {
				require.NoError(t, f.store.Set(ctx, "test:user", tc.raw))
			}
			f.gate.RestoreSession(ctx)

			assert.Equal(t, tc.wantAuth, f.gate.IsAuthenticated())
			assert.False(t, f.gate.IsLoading())
			_, ok, _ := f.store.Get(ctx, "test:user")
			assert.Equal(t, tc.wantAuth, ok, "malformed records are removed")
		})
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	t.Run("with session", func(t *testing.T) {
		f := newGateFixture(t, nil, 0)
		f.gate.RestoreSession(ctx)
		_, err := f.gate.Login(ctx, "admin@example.com", "admin123")
		require.NoError(t, err)

		require.NoError(t, f.gate.Logout(ctx))
		assert.False(t, f.gate.IsAuthenticated())
		_, ok := f.persisted(t)
		assert.False(t, ok)

		events, _ := f.log.List(ctx, audit.Filter{Action: audit.ActionLogout}, 0)
		require.Len(t, events, 1)
		assert.Equal(t, 1, events[0].UserID)
	})

	t.Run("without session", func(t *testing.T) {
		f := newGateFixture(t, nil, 0)
		require.NoError(t, f.store.Set(ctx, "test:user", []byte("stale")))
		require.NoError(t, f.gate.Logout(ctx))
		assert.False(t, f.gate.IsAuthenticated())
		assert.False(t, f.gate.IsLoading())
		_, ok, _ := f.store.Get(ctx, "test:user")
		assert.False(t, ok)
		assert.Equal(t, 0, f.log.Len())
	})
}

func TestConcurrentLoginLatestWins(t *testing.T) {
	ctx := context.Background()
	bv := &blockingVerifier{
		next:    testCredentials(t),
		email:   "admin@example.com",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newGateFixture(t, bv, 0)
	f.gate.RestoreSession(ctx)

	type result struct {
		ok  bool
		err error
	}
	first := make(chan result, 1)
	go func() {
		ok, err := f.gate.Login(ctx, "admin@example.com", "admin123")
		first <- result{ok, err}
	}()
	<-bv.entered

	ok, err := f.gate.Login(ctx, "john@example.com", "employee123")
	require.NoError(t, err)
	require.True(t, ok)

	close(bv.release)
	stale := <-first
	assert.False(t, stale.ok)
	assert.ErrorIs(t, stale.err, ErrLoginSuperseded)

	user, _ := f.gate.User()
	assert.Equal(t, "john@example.com", user.Email)
	record, _ := f.persisted(t)
	assert.Equal(t, "john@example.com", record["email"])
}

func TestLogoutInvalidatesInFlightLogin(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t, nil, 50*time.Millisecond)
	f.gate.RestoreSession(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := f.gate.Login(ctx, "admin@example.com", "admin123")
		done <- err
	}()
	require.Eventually(t, f.gate.IsLoading, time.Second, time.Millisecond)

	require.NoError(t, f.gate.Logout(ctx))
	assert.False(t, f.gate.IsLoading())
	assert.ErrorIs(t, <-done, ErrLoginSuperseded)
	assert.False(t, f.gate.IsAuthenticated())
}

func TestLoginCancelledDiscardsResult(t *testing.T) {
	f := newGateFixture(t, nil, time.Hour)
	f.gate.RestoreSession(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.gate.Login(ctx, "admin@example.com", "admin123")
		done <- err
	}()
	require.Eventually(t, f.gate.IsLoading, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, f.gate.IsLoading())
	assert.False(t, f.gate.IsAuthenticated())
}

func TestCloseAbortsPendingLogin(t *testing.T) {
	f := newGateFixture(t, nil, time.Hour)
	f.gate.RestoreSession(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := f.gate.Login(context.Background(), "admin@example.com", "admin123")
		done <- err
	}()
	require.Eventually(t, f.gate.IsLoading, time.Second, time.Millisecond)
	f.gate.Close()

	assert.ErrorIs(t, <-done, ErrGateClosed)
	_, err := f.gate.Login(context.Background(), "admin@example.com", "admin123")
	assert.ErrorIs(t, err, ErrGateClosed)
	assert.True(t, f.gate.Closed())
}

func TestLoginStorageFailureKeepsState(t *testing.T) {
	boom := errors.New("disk full")
	store := failingStore{Memory: storage.NewMemory(0), setErr: boom}
	gate := NewGate(GateConfig{Key: "k", Store: store, Verifier: testCredentials(t)})
	defer gate.Close()
	gate.RestoreSession(context.Background())

	ok, err := gate.Login(context.Background(), "admin@example.com", "admin123")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.False(t, gate.IsAuthenticated())
	assert.False(t, gate.IsLoading())
}

func TestSubscribeSeesTransitions(t *testing.T) {
	ctx := context.Background()
	f := newGateFixture(t, nil, 0)
	updates, cancel := f.gate.Subscribe()

	f.gate.RestoreSession(ctx)
	st := <-updates
	assert.False(t, st.Loading)
	assert.False(t, st.Authenticated())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.gate.Login(ctx, "admin@example.com", "admin123")
	}()
	wg.Wait()

	st = <-updates
	assert.False(t, st.Loading)
	assert.True(t, st.Authenticated())

	cancel()
	_, open := <-updates
	assert.False(t, open)
	cancel()
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
