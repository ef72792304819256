package handlers

import (
	"net/http"

	"github.com/phantask/auth-service/auth"
	"github.com/phantask/auth-service/utils"
)

// AuthDeps provides auth handler for route wiring
type AuthDeps interface {
	AuthHandler() *auth.Handler
}

// withAuthHandler delegates to the configured auth handler, or fails with 500
func withAuthHandler(deps AuthDeps, serve func(h *auth.Handler, w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h := deps.AuthHandler(); h != nil {
			serve(h, w, r)
			return
		}
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
	}
}

// AuthLoginHandler returns an http.HandlerFunc for the login endpoint
func AuthLoginHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleLogin)
}

// AuthRefreshHandler returns an http.HandlerFunc for the refresh-token endpoint
func AuthRefreshHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleRefresh)
}

// AuthLogoutHandler returns an http.HandlerFunc for the logout endpoint
func AuthLogoutHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleLogout)
}

// AuthMeHandler returns an http.HandlerFunc for the /me endpoint
func AuthMeHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleMe)
}

// AuthChangePasswordHandler returns an http.HandlerFunc for the change-password endpoint
func AuthChangePasswordHandler(deps AuthDeps) http.HandlerFunc {
	return withAuthHandler(deps, (*auth.Handler).HandleChangePassword)
}
