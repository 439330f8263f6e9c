package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tenant-auth-core/internal/config"
	"tenant-auth-core/internal/handler"
	"tenant-auth-core/internal/middleware"
	"tenant-auth-core/internal/token"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Rating *handler.RatingHandler
	// Health reports whether backing stores are reachable.
	Health func(ctx context.Context) error
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/token", h.Auth.ClientToken)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			auth.Post("/verify-email", h.Auth.VerifyEmail)
			auth.Post("/password-reset", h.Auth.RequestPasswordReset)
			auth.Post("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
		})

		api.With(
			authMiddleware.RequireAuth,
			authMiddleware.RequireScope(token.ScopeManager, token.ScopeAdmin, token.ScopeClient),
			authMiddleware.RequireTenant("customerID"),
		).Post("/customers/{customerID}/users", h.User.Register)

		api.With(authMiddleware.RequireAuth, authMiddleware.RequireOwner("userID")).Get("/users/{userID}", h.User.Get)

		api.With(
			authMiddleware.RequireAuth,
			authMiddleware.RequireScope(token.ScopeClient, token.ScopeAdmin),
		).Post("/responses/{responseID}/rating-links", h.Rating.IssueLink)

		api.Post("/ratings", h.Rating.Rate)
	})

	return r
}
