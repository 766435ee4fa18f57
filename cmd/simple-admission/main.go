package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-admission/admit"
	"github.com/tendant/simple-admission/internal/config"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/internal/notification"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/repository"
	"github.com/tendant/simple-admission/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// simple-admission hash-admin-key <key> prints a value for ADMIN_API_KEY_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-admin-key" {
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[2]), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash failed:", err)
			os.Exit(1)
		}
		fmt.Println(string(hash))
		return
	}

	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", logging.Err(err))
		os.Exit(1)
	}

	// Setup logger
	logger, logCloser, err := logging.Setup(logging.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		File:         cfg.Log.File,
		RotationTime: cfg.Log.RotationTime,
		MaxAge:       cfg.Log.MaxAge,
	})
	if err != nil {
		slog.Error("failed to set up logging", logging.Err(err))
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	dbCfg := repository.Config{
		Driver:       cfg.Database.Driver,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxOpenConns,
	}
	if cfg.Database.Driver == repository.DriverSQLite {
		dbCfg.DSN = repository.SQLiteDSN(cfg.Database.SQLitePath)
	} else {
		dbCfg.DSN = repository.PostgresDSN(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
			cfg.Database.SSLMode,
		)
		dbCfg.ConnMaxLifetime = 30 * time.Minute
	}
	db, err := repository.Open(ctx, dbCfg, logger.With(logging.Module("repository")))
	if err != nil {
		logger.Error("failed to connect to database", logging.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database", "driver", db.Driver())

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", logging.Err(err))
			os.Exit(1)
		}
	}
	go db.Monitor(ctx, cfg.Database.HealthInterval)

	// Initialize email service if configured. The notifier stays a nil
	// interface when SMTP is off.
	var notifier admission.Notifier
	if cfg.HasSMTP() {
		notifier = notification.NewEmailService(notification.EmailConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			User:      cfg.SMTP.User,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			FromName:  cfg.SMTP.FromName,
			InviteTTL: cfg.InviteTTL,
		})
		logger.Info("email service enabled")
	}

	if !cfg.HasAdminKey() {
		logger.Warn("ADMIN_API_KEY_HASH is not set; admin routes will refuse every request")
	}
	if !cfg.RateLimit.Enabled {
		logger.Warn("rate limiting disabled")
	}

	// Wire repositories, services and routes
	app, err := admit.New(admit.Config{
		DB:              db,
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		InviteTTL:       cfg.InviteTTL,
		AppBaseURL:      cfg.AppBaseURL,
		AdminKeyHash:    cfg.AdminKeyHash,
		Notifier:        notifier,
		RateLimit:       &cfg.RateLimit,
		EmailPolicy: validate.EmailPolicy{
			Strict:          cfg.Security.StrictEmailValidation,
			BlockDisposable: cfg.Security.BlockDisposableEmail,
		},
		SecurityHeaders: &cfg.Security.Headers,
		MaxBodySize:     cfg.Security.MaxRequestBodySize,
		CookieSecure:    cfg.Security.CookieSecure,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to initialize admission service", logging.Err(err))
		os.Exit(1)
	}

	// Background purge of closed rate-limit windows and expired revocations
	go app.Janitor(cfg.CleanupInterval).Run(ctx)

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", logging.Err(err))
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", logging.Err(err))
	}

	logger.Info("server stopped")
}
