package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/config"
	"github.com/tendant/simple-admission/internal/http/features/intentions"
	"github.com/tendant/simple-admission/internal/http/features/invites"
	"github.com/tendant/simple-admission/internal/http/features/me"
	"github.com/tendant/simple-admission/internal/http/features/members"
	"github.com/tendant/simple-admission/internal/http/features/session"
	"github.com/tendant/simple-admission/internal/http/middleware"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/auth"
	"github.com/tendant/simple-admission/pkg/ratelimit"
)

// HealthChecker reports datastore reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MemberDirectory is the member storage used by the HTTP layer.
type MemberDirectory interface {
	middleware.MemberLookup
	members.Directory
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger           *slog.Logger
	Clock            clockwork.Clock // optional
	Health           HealthChecker
	IntentionService *admission.IntentionService
	Workflow         *admission.Workflow
	Ledger           *admission.Ledger
	Gate             *admission.Gate
	SessionService   *auth.SessionService
	Members          MemberDirectory
	RateLimitStore   ratelimit.Store
	RateLimitConfig  config.RateLimitConfig
	SecurityHeaders  config.SecurityHeadersConfig
	MaxBodySize      int64
	AdminKeyHash     string
	CookieSecure     bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := cfg.Health.HealthCheck(ctx); err != nil {
			cfg.Logger.Warn("health check failed", logging.Err(err))
			httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.RateLimitStore, cfg.Clock, cfg.Logger)
	requireAuth := middleware.Auth(cfg.SessionService, cfg.Logger)

	// Public admission routes
	intentionsHandler := intentions.NewHandler(cfg.Logger, cfg.IntentionService, cfg.Workflow, cfg.Ledger)
	invitesHandler := invites.NewHandler(cfg.Logger, cfg.Gate)
	membersHandler := members.NewHandler(cfg.Logger, cfg.Gate, cfg.Members, cfg.Clock)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Public)
		r.Post("/v1/intentions", intentionsHandler.Submit)
		r.Post("/v1/members", membersHandler.Register)
	})
	r.Get("/v1/invites/{token}", invitesHandler.Check)

	// Register session routes
	sessionHandler := session.NewHandler(cfg.Logger, cfg.SessionService, cfg.CookieSecure)
	r.With(rateLimiters.Login).Post("/v1/auth/login", sessionHandler.Login)
	r.With(rateLimiters.Refresh).Post("/v1/auth/refresh", sessionHandler.Refresh)
	r.Post("/v1/auth/logout", sessionHandler.Logout)

	// Register member profile routes
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireActive(cfg.Members, cfg.Logger))
		r.Get("/v1/me", me.GetMe)
	})

	// Operator routes
	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(middleware.AdminKey(cfg.AdminKeyHash, cfg.Logger))
		r.Get("/intentions", intentionsHandler.List)
		r.Get("/intentions/{id}", intentionsHandler.Get)
		r.Patch("/intentions/{id}/status", intentionsHandler.SetStatus)
		r.Post("/intentions/{id}/invites", intentionsHandler.IssueInvite)
		r.Get("/members", membersHandler.List)
		r.Patch("/members/{id}/active", membersHandler.SetActive)
	})

	return r
}
