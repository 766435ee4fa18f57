// Package admit provides the admission workflow and member sessions as an
// embeddable library.
//
// Setup:
//
//  1. Open a repository.DB and run Migrate, or apply the SQL under
//     pkg/repository/migrations with your own tooling
//  2. Create an Admit instance and mount its router
//
// Basic usage:
//
//	db, _ := repository.Open(ctx, repository.Config{
//	    Driver: repository.DriverSQLite,
//	    DSN:    repository.SQLiteDSN("admission.db"),
//	}, logger)
//	_ = db.Migrate(ctx)
//
//	a, err := admit.New(admit.Config{
//	    DB:           db,
//	    JWTSecret:    "your-secret-key-at-least-32-chars",
//	    AppBaseURL:   "https://club.example.com",
//	    AdminKeyHash: hash,
//	})
//	if err != nil {
//	    log.Fatal(err) // fails if migrations haven't been run
//	}
//	go a.Janitor(10 * time.Minute).Run(ctx)
//	http.ListenAndServe(":8080", a.Router())
package admit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/config"
	httpserver "github.com/tendant/simple-admission/internal/http"
	"github.com/tendant/simple-admission/internal/http/middleware"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/internal/maintenance"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/auth"
	"github.com/tendant/simple-admission/pkg/domain"
	"github.com/tendant/simple-admission/pkg/repository"
	"github.com/tendant/simple-admission/pkg/validate"
)

// RateLimitConfig configures the login, refresh and public request limits.
type RateLimitConfig = config.RateLimitConfig

// SecurityHeadersConfig configures the response security headers.
type SecurityHeadersConfig = config.SecurityHeadersConfig

// Config holds the configuration for the admission library.
type Config struct {
	// DB is the database handle (required).
	DB *repository.DB

	// JWTSecret signs access and refresh tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in tokens (default: "simple-admission").
	JWTIssuer string

	// AccessTokenTTL is the lifetime of access tokens (default: 15 minutes).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 7 days).
	RefreshTokenTTL time.Duration

	// InviteTTL is the lifetime of minted invites (default: 7 days).
	InviteTTL time.Duration

	// AppBaseURL prefixes invite links.
	AppBaseURL string

	// AdminKeyHash is the bcrypt hash of the operator key. Admin routes
	// refuse every request when it is empty.
	AdminKeyHash string

	// Notifier delivers invite links (optional).
	Notifier admission.Notifier

	// RateLimit overrides the default limits when non-nil.
	RateLimit *RateLimitConfig

	// EmailPolicy controls applicant e-mail checks.
	EmailPolicy validate.EmailPolicy

	// SecurityHeaders overrides the default response headers when non-nil.
	SecurityHeaders *SecurityHeadersConfig

	// MaxBodySize caps request bodies (default: 1 MiB).
	MaxBodySize int64

	// CookieSecure marks session cookies Secure.
	CookieSecure bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger

	// Clock is the time source (default: the real clock).
	Clock clockwork.Clock
}

// Admit is the main admission instance.
type Admit struct {
	config Config

	membersRepo   *repository.MembersRepository
	rateLimitRepo *repository.RateLimitRepository
	revokedRepo   *repository.RevokedTokensRepository

	intentionService *admission.IntentionService
	ledger           *admission.Ledger
	gate             *admission.Gate
	workflow         *admission.Workflow
	sessionService   *auth.SessionService
}

// New creates an Admit instance with the given configuration.
// Returns an error if required database tables don't exist.
func New(cfg Config) (*Admit, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cfg.DB.CheckSchema(ctx); err != nil {
		return nil, fmt.Errorf("admit: %w", err)
	}

	// Initialize repositories
	intentionsRepo := repository.NewIntentionsRepository(cfg.DB)
	invitesRepo := repository.NewInvitesRepository(cfg.DB)
	membersRepo := repository.NewMembersRepository(cfg.DB)
	rateLimitRepo := repository.NewRateLimitRepository(cfg.DB)
	revokedRepo := repository.NewRevokedTokensRepository(cfg.DB)

	// Initialize services
	admissionLog := cfg.Logger.With(logging.Module("admission"))
	intentionService := admission.NewIntentionService(intentionsRepo, cfg.EmailPolicy, cfg.Clock, admissionLog)
	ledger := admission.NewLedger(invitesRepo, cfg.InviteTTL, cfg.Clock)
	gate := admission.NewGate(ledger, intentionsRepo, repository.NewAdmissionsRepository(cfg.DB), cfg.Clock, admissionLog)
	workflow := admission.NewWorkflow(intentionService, ledger, cfg.Notifier, cfg.AppBaseURL, admissionLog)

	issuer := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, revokedRepo, cfg.Clock)

	return &Admit{
		config:           cfg,
		membersRepo:      membersRepo,
		rateLimitRepo:    rateLimitRepo,
		revokedRepo:      revokedRepo,
		intentionService: intentionService,
		ledger:           ledger,
		gate:             gate,
		workflow:         workflow,
		sessionService:   auth.NewSessionService(issuer, membersRepo, cfg.Logger.With(logging.Module("auth"))),
	}, nil
}

// Router returns the full HTTP surface:
//
//	GET   /health                              - Datastore reachability
//	POST  /v1/intentions                       - Submit an intention
//	GET   /v1/invites/{token}                  - Check an invite
//	POST  /v1/members                          - Redeem an invite
//	POST  /v1/auth/login                       - Issue tokens (rate limited)
//	POST  /v1/auth/refresh                     - Rotate tokens (rate limited)
//	POST  /v1/auth/logout                      - Revoke tokens
//	GET   /v1/me                               - Current member (protected)
//	GET   /v1/admin/intentions                 - List intentions (admin key)
//	GET   /v1/admin/intentions/{id}            - Intention with invites
//	PATCH /v1/admin/intentions/{id}/status     - Approve or reject
//	POST  /v1/admin/intentions/{id}/invites    - Reissue an invite
//	GET   /v1/admin/members                    - List members
//	PATCH /v1/admin/members/{id}/active        - Activate or deactivate
func (a *Admit) Router() http.Handler {
	return httpserver.NewRouter(httpserver.RouterConfig{
		Logger:           a.config.Logger.With(logging.Module("http")),
		Clock:            a.config.Clock,
		Health:           a.config.DB,
		IntentionService: a.intentionService,
		Workflow:         a.workflow,
		Ledger:           a.ledger,
		Gate:             a.gate,
		SessionService:   a.sessionService,
		Members:          a.membersRepo,
		RateLimitStore:   a.rateLimitRepo,
		RateLimitConfig:  *a.config.RateLimit,
		SecurityHeaders:  *a.config.SecurityHeaders,
		MaxBodySize:      a.config.MaxBodySize,
		AdminKeyHash:     a.config.AdminKeyHash,
		CookieSecure:     a.config.CookieSecure,
	})
}

// Janitor returns a background task that purges closed rate-limit windows
// and expired token revocations every interval.
func (a *Admit) Janitor(interval time.Duration) *maintenance.Janitor {
	return maintenance.NewJanitor(interval, a.config.Clock, a.config.Logger.With(logging.Module("maintenance")),
		maintenance.Task{Name: "rate_limit_entries", Purger: a.rateLimitRepo},
		maintenance.Task{Name: "revoked_tokens", Purger: a.revokedRepo},
	)
}

// Workflow returns the review workflow for advanced usage.
func (a *Admit) Workflow() *admission.Workflow {
	return a.workflow
}

// SessionService returns the session service for advanced usage.
func (a *Admit) SessionService() *auth.SessionService {
	return a.sessionService
}

// AuthMiddleware returns middleware that validates access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(a.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (a *Admit) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(a.sessionService, a.config.Logger)
}

// GetMemberID extracts the member ID from a request.
// Use after AuthMiddleware.
func GetMemberID(r *http.Request) (uuid.UUID, bool) {
	return middleware.GetMemberID(r.Context())
}

// GetMember loads the current member. Use after AuthMiddleware.
func (a *Admit) GetMember(r *http.Request) (*domain.Member, error) {
	id, ok := middleware.GetMemberID(r.Context())
	if !ok {
		return nil, errors.New("member not authenticated")
	}
	return a.membersRepo.GetByID(r.Context(), id)
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("admit: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("admit: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("admit: JWTSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "simple-admission"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.InviteTTL == 0 {
		cfg.InviteTTL = domain.InviteTTL
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 1 << 20
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = &RateLimitConfig{
			Enabled:                 true,
			LoginRequests:           5,
			LoginWindow:             15 * time.Minute,
			RefreshRequests:         10,
			RefreshWindow:           time.Hour,
			PublicRequestsPerMinute: 20,
		}
	}
	if cfg.SecurityHeaders == nil {
		cfg.SecurityHeaders = &SecurityHeadersConfig{
			Enabled:            true,
			CSP:                "default-src 'none'; frame-ancestors 'none'",
			FrameOptions:       "DENY",
			ContentTypeOptions: "nosniff",
			XSSProtection:      "0",
			ReferrerPolicy:     "no-referrer",
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
}
