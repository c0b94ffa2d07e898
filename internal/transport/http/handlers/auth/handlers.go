package authhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/platform/metrics"
	"ems/internal/platform/requestctx"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
	"ems/internal/transport/http/ui"
)

const (
	homePath  = "/dashboard"
	loginPath = "/login"

	msgInvalidCredentials = "Invalid email or password"
	msgSuperseded         = "A newer sign-in attempt replaced this one."
)

type Handler struct {
	UI      *ui.Renderer
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

func NewHandler(renderer *ui.Renderer, collector *metrics.Collector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{UI: renderer, Metrics: collector, Logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	Loading       bool       `json:"loading"`
	User          *auth.User `json:"user"`
}

// RegisterRoutes mounts the browser login flow.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(loginPath, h.handleLoginPage)
	r.Post(loginPath, h.handleLoginForm)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) RegisterAPIRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLoginJSON)
		r.Post("/logout", h.handleLogout)
		r.Get("/session", h.handleSession)
	})
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	gate, ok := middleware.GetGate(r.Context())
	if ok && gate.IsAuthenticated() {
		http.Redirect(w, r, homePath, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "", "")
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, "", "Invalid form submission")
		return
	}
	email, password := r.PostForm.Get("email"), r.PostForm.Get("password")
	v := shared.NewValidator()
	v.Required("email", email, "is required")
	v.Required("password", password, "is required")
	if v.HasIssues() {
		h.renderLogin(w, r, http.StatusBadRequest, email, "Email and password are required")
		return
	}

	ok, err := h.login(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrLoginSuperseded):
		h.renderLogin(w, r, http.StatusConflict, email, msgSuperseded)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		h.UI.Error(w, r, loginErrorStatus(err), "Sign-in is unavailable right now.")
	case !ok:
		h.renderLogin(w, r, http.StatusUnauthorized, email, msgInvalidCredentials)
	default:
		http.Redirect(w, r, homePath, http.StatusSeeOther)
	}
}

func (h *Handler) handleLoginJSON(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	ok, err := h.login(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrLoginSuperseded):
		api.Fail(w, http.StatusConflict, "login_superseded", "a newer login attempt replaced this one", reqID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		api.Fail(w, loginErrorStatus(err), "login_failed", "login is unavailable", reqID)
	case !ok:
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
	default:
		gate, _ := middleware.GetGate(r.Context())
		user, _ := gate.User()
		api.Success(w, map[string]any{"user": user}, reqID)
	}
}

func (h *Handler) login(ctx context.Context, email, password string) (bool, error) {
	gate, ok := middleware.GetGate(ctx)
	if !ok {
		return false, auth.ErrGateClosed
	}
	ok, err := gate.Login(ctx, email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrLoginSuperseded) && !errors.Is(err, context.Canceled) {
			h.Logger.Warn("login failed", "err", err, "requestId", requestctx.GetRequestID(ctx))
		}
		return false, err
	}
	if h.Metrics != nil {
		h.Metrics.RecordLogin(ok)
	}
	return ok, nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if gate, ok := middleware.GetGate(r.Context()); ok {
		if err := gate.Logout(r.Context()); err != nil {
			h.Logger.Warn("logout storage cleanup failed", "err", err, "requestId", requestctx.GetRequestID(r.Context()))
		}
		if h.Metrics != nil {
			h.Metrics.RecordLogout()
		}
	}
	if api.WantsJSON(r) {
		api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	out := sessionResponse{}
	if gate, ok := middleware.GetGate(r.Context()); ok {
		st := gate.State()
		out = sessionResponse{Authenticated: st.Authenticated(), Loading: st.Loading, User: st.User}
	}
	api.Success(w, out, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, message string) {
	page := ui.NewPage(r, "Login")
	page.Error = message
	page.Data = ui.LoginData{Email: email}
	if err := h.UI.Render(w, status, "login", page); err != nil {
		h.Logger.Warn("render login failed", "err", err)
	}
}

func loginErrorStatus(err error) int {
	if errors.Is(err, auth.ErrGateClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
