package middleware

import (
	"net/http"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/api"
)

// RequirePermission checks the admitted user's role. denied, when set,
// renders the HTML response for browsers.
func RequirePermission(permission string, denied http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !auth.Can(user.Role, permission) {
				if denied != nil && !isAPI(r) {
					denied.ServeHTTP(w, r)
					return
				}
				fail(w, r, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAPI(r *http.Request) bool {
	return api.WantsJSON(r)
}
