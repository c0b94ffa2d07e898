package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ems/internal/domain/auth"
	"ems/internal/platform/metrics"
)

// CookieName carries the signed session id.
const CookieName = "ems_session"

type ctxKey string

const (
	ctxKeyGate ctxKey = "gate"
	ctxKeyUser ctxKey = "user"
)

type SessionConfig struct {
	Manager *auth.Manager
	Secret  string
	TTL     time.Duration
	Secure  bool
	Logger  *slog.Logger
}

// Session resolves the client's gate from the session cookie, issuing a new
// session id when the cookie is missing or invalid.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(CookieName); err == nil {
				if parsed, err := auth.ParseSessionToken(cfg.Secret, cookie.Value); err == nil {
					sid = parsed
				}
			}
			if sid == "" {
				issued, err := issueSession(w, cfg)
				if err != nil {
					logger.Error("issue session failed", "err", err)
					fail(w, r, http.StatusInternalServerError, "session_error", "failed to start session")
					return
				}
				sid = issued
			}

			gate, err := cfg.Manager.Gate(r.Context(), sid)
			if err == nil && gate.Closed() {
				// evicted or swept between lookup and use
				gate, err = cfg.Manager.Gate(r.Context(), sid)
			}
			if errors.Is(err, auth.ErrManagerClosed) {
				fail(w, r, http.StatusServiceUnavailable, "shutting_down", "server is shutting down")
				return
			}
			if err != nil {
				logger.Warn("session gate lookup failed", "err", err)
				fail(w, r, http.StatusInternalServerError, "session_error", "failed to load session")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithGate(r.Context(), gate)))
		})
	}
}

func issueSession(w http.ResponseWriter, cfg SessionConfig) (string, error) {
	sid := auth.NewSessionID()
	token, err := auth.GenerateSessionToken(cfg.Secret, sid, cfg.TTL)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid, nil
}

func WithGate(ctx context.Context, gate *auth.Gate) context.Context {
	return context.WithValue(ctx, ctxKeyGate, gate)
}

func GetGate(ctx context.Context) (*auth.Gate, bool) {
	gate, ok := ctx.Value(ctxKeyGate).(*auth.Gate)
	return gate, ok && gate != nil
}

func WithUser(ctx context.Context, user auth.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// GetUser returns the user admitted by RequireSession.
func GetUser(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.User)
	return user, ok
}

type GuardConfig struct {
	// Wait bounds how long a request waits for a loading session to settle.
	Wait      time.Duration
	Loading   http.Handler
	LoginPath string
	Metrics   *metrics.Collector
}

// RequireSession admits authenticated sessions. Loading sessions get the
// placeholder page and anonymous ones are sent to the login page.
func RequireSession(cfg GuardConfig) func(http.Handler) http.Handler {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate, ok := GetGate(r.Context())
			if !ok {
				fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			st := AwaitSettled(r.Context(), gate, cfg.Wait)
			switch {
			case st.Loading:
				if cfg.Metrics != nil {
					cfg.Metrics.RecordLoadingPage()
				}
				w.Header().Set("Retry-After", "1")
				if cfg.Loading == nil || isAPI(r) {
					fail(w, r, http.StatusServiceUnavailable, "session_loading", "session is loading")
					return
				}
				cfg.Loading.ServeHTTP(w, r)
			case !st.Authenticated():
				if isAPI(r) {
					fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
					return
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), *st.User)))
			}
		})
	}
}

// AwaitSettled returns the gate state once it stops loading, or the loading
// state when wait elapses or ctx ends first.
func AwaitSettled(ctx context.Context, gate *auth.Gate, wait time.Duration) auth.State {
	st := gate.State()
	if !st.Loading || wait <= 0 {
		return st
	}
	updates, cancel := gate.Subscribe()
	defer cancel()
	// Re-read so a transition between State and Subscribe is not missed.
	st = gate.State()
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for st.Loading {
		select {
		case next, ok := <-updates:
			if !ok {
				return gate.State()
			}
			st = next
		case <-timer.C:
			return st
		case <-ctx.Done():
			return st
		}
	}
	return st
}
