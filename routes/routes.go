package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phantask/auth-service/app"
	"github.com/phantask/auth-service/handlers"
	"github.com/phantask/auth-service/middleware"
	"github.com/phantask/auth-service/models"
	"github.com/phantask/auth-service/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(deps.TrustedProxies))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Every request passes the authentication gate; /api/auth/ paths are skipped inside it
	r.Use(deps.AuthMiddleware.Authenticate)

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.LoginThrottle.Limit).Post("/login", handlers.AuthLoginHandler(deps))
		r.Post("/refresh-token", handlers.AuthRefreshHandler(deps))
		r.Post("/logout", handlers.AuthLogoutHandler(deps))
		r.Get("/me", handlers.AuthMeHandler(deps))
		r.With(deps.LoginThrottle.Limit).Post("/change-password", handlers.AuthChangePasswordHandler(deps))
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Get("/profile", deps.UserHandler.HandleProfile)
		r.Post("/change-password", deps.UserHandler.HandleChangePassword)
		r.Post("/update-profile", deps.UserHandler.HandleUpdateProfile)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleAdmin))
			r.Post("/create-student", deps.UserHandler.HandleCreateStudent)
			r.Get("/active", deps.UserHandler.HandleListUsers(true))
			r.Get("/inactive", deps.UserHandler.HandleListUsers(false))
			r.Put("/{username}/enabled", deps.UserHandler.HandleSetEnabled)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
