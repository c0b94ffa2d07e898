package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxRateKeys     = 1024
	maxPeekBodySize = 64 << 10
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*fixedWindow)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(fw *fixedWindow) {
		if fn != nil {
			fw.key = fn
		}
	}
}

// fixedWindow counts hits per key in windows that start at the first hit.
type fixedWindow struct {
	limit  int
	window time.Duration
	key    RateLimitKeyFunc
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*windowState
}

type windowState struct {
	hits    int
	resetAt time.Time
}

type verdict struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func newFixedWindow(limit int, window time.Duration, key RateLimitKeyFunc) *fixedWindow {
	if key == nil {
		key = actorOrIPKey
	}
	return &fixedWindow{limit: limit, window: window, key: key, now: time.Now, windows: map[string]*windowState{}}
}

func (fw *fixedWindow) hit(key string) verdict {
	now := fw.now()
	fw.mu.Lock()
	defer fw.mu.Unlock()

	st, ok := fw.windows[key]
	if !ok || !now.Before(st.resetAt) {
		if len(fw.windows) >= maxRateKeys {
			fw.evictLocked(now)
		}
		st = &windowState{resetAt: now.Add(fw.window)}
		fw.windows[key] = st
	}
	st.hits++
	return verdict{allowed: st.hits <= fw.limit, remaining: max(fw.limit-st.hits, 0), resetIn: st.resetAt.Sub(now)}
}

func (fw *fixedWindow) evictLocked(now time.Time) {
	for key, st := range fw.windows {
		if !now.Before(st.resetAt) {
			delete(fw.windows, key)
		}
	}
}

// admit applies the window to r and writes a 429 when the key is over limit.
func (fw *fixedWindow) admit(w http.ResponseWriter, r *http.Request) bool {
	if fw.limit <= 0 {
		return true
	}
	key := fw.key(r)
	if key == "" {
		key = clientIPKey(r)
	}
	v := fw.hit(key)

	resetSec := ceilSeconds(v.resetIn)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(fw.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if v.allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", fw.limit)
	fail(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	fw := newFixedWindow(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(fw)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fw.admit(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

type rateScope int

const (
	scopeNone rateScope = iota
	scopeLogin
	scopeMutation
)

// sensitiveRoutes are matched with path.Match after the /api/v1 prefix is removed.
var sensitiveRoutes = []struct {
	pattern string
	scope   rateScope
}{
	{"/login", scopeLogin},
	{"/auth/login", scopeLogin},
	{"/payroll/process", scopeMutation},
	{"/payroll/*/process", scopeMutation},
	{"/dashboard/announcements", scopeMutation},
	{"/attendance/check-in", scopeMutation},
	{"/attendance/check-out", scopeMutation},
	{"/attendance/leaves/*/approve", scopeMutation},
	{"/attendance/leaves/*/reject", scopeMutation},
}

func scopeOf(r *http.Request) rateScope {
	if r.Method != http.MethodPost {
		return scopeNone
	}
	p := routePath(r.URL.Path)
	for _, route := range sensitiveRoutes {
		if ok, _ := path.Match(route.pattern, p); ok {
			return route.scope
		}
	}
	return scopeNone
}

func routePath(p string) string {
	p = strings.TrimPrefix(p, "/api/v1")
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// SensitiveMutationRateLimit throttles login attempts by client address and
// by submitted email, and state-changing actions by session user. Every
// other request passes through.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	if baseLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	loginByIP := newFixedWindow(max(baseLimit/4, 1), window, clientIPKey)
	loginByEmail := newFixedWindow(max(baseLimit/4, 1), window, AuthEmailOrIPKey("email"))
	mutations := newFixedWindow(max(baseLimit/2, 1), window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch scopeOf(r) {
			case scopeLogin:
				if !loginByIP.admit(w, r) || !loginByEmail.admit(w, r) {
					return
				}
			case scopeMutation:
				if !mutations.admit(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthEmailOrIPKey keys on the submitted email (JSON or form body) and falls
// back to the client address.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	if field = strings.TrimSpace(field); field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		if email := submittedField(r, field); email != "" {
			return "email:" + strings.ToLower(email)
		}
		return clientIPKey(r)
	}
}

func actorOrIPKey(r *http.Request) string {
	user, ok := GetUser(r.Context())
	if !ok {
		if gate, found := GetGate(r.Context()); found {
			user, ok = gate.User()
		}
	}
	if ok {
		return "user:" + strconv.Itoa(user.ID)
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// submittedField reads field from the request body and leaves the body
// readable for the handler.
func submittedField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return strings.TrimSpace(r.PostForm.Get(field))
	case strings.Contains(ct, "application/json"):
		body := r.Body
		raw, err := io.ReadAll(io.LimitReader(body, maxPeekBodySize))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(raw), body), body}
		if err != nil || len(raw) == 0 {
			return ""
		}
		var payload map[string]any
		if json.Unmarshal(raw, &payload) != nil {
			return ""
		}
		value, _ := payload[field].(string)
		return strings.TrimSpace(value)
	}
	return ""
}
