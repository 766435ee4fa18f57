package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLength = 32

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	AppBaseURL string

	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	SMTP      SMTPConfig
	Log       LogConfig

	// JWT
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Admission
	InviteTTL       time.Duration
	AdminKeyHash    string
	CleanupInterval time.Duration
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	SQLitePath     string
	MaxOpenConns   int
	AutoMigrate    bool
	HealthInterval time.Duration
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled                 bool
	LoginRequests           int
	LoginWindow             time.Duration
	RefreshRequests         int
	RefreshWindow           time.Duration
	PublicRequestsPerMinute int
	// TrustProxyHeaders keys limits on True-Client-IP, X-Real-IP or
	// X-Forwarded-For instead of the connection address. Enable only behind
	// a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// SecurityConfig holds request hardening settings.
type SecurityConfig struct {
	MaxRequestBodySize    int64
	StrictEmailValidation bool
	BlockDisposableEmail  bool
	CookieSecure          bool
	Headers               SecurityHeadersConfig
}

// SecurityHeadersConfig holds response security header values.
// Empty values and a zero HSTSMaxAge leave the header unset.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level        string
	Format       string
	File         string
	RotationTime time.Duration
	MaxAge       time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		Database: DatabaseConfig{
			Driver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "simple_admission"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			SQLitePath:     getEnv("DB_SQLITE_PATH", "simple-admission.db"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 10),
			AutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
			HealthInterval: getEnvDuration("DB_HEALTH_INTERVAL", 30*time.Second),
		},

		RateLimit: RateLimitConfig{
			Enabled:                 getEnvBool("RATE_LIMIT_ENABLED", true),
			LoginRequests:           getEnvInt("RATE_LIMIT_LOGIN_REQUESTS", 5),
			LoginWindow:             getEnvDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
			RefreshRequests:         getEnvInt("RATE_LIMIT_REFRESH_REQUESTS", 10),
			RefreshWindow:           getEnvDuration("RATE_LIMIT_REFRESH_WINDOW", time.Hour),
			PublicRequestsPerMinute: getEnvInt("RATE_LIMIT_PUBLIC_REQUESTS_PER_MINUTE", 20),
			TrustProxyHeaders:       getEnvBool("RATE_LIMIT_TRUST_PROXY_HEADERS", false),
		},

		Security: SecurityConfig{
			MaxRequestBodySize:    int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
			StrictEmailValidation: getEnvBool("STRICT_EMAIL_VALIDATION", true),
			BlockDisposableEmail:  getEnvBool("BLOCK_DISPOSABLE_EMAIL", false),
			CookieSecure:          getEnvBool("COOKIE_SECURE", false),
			Headers: SecurityHeadersConfig{
				Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
				CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
				HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
				FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
				ContentTypeOptions: "nosniff",
				XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "0"),
				ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
				PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), camera=(), microphone=()"),
			},
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@localhost"),
			FromName: getEnv("SMTP_FROM_NAME", "Simple Admission"),
		},

		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "json"),
			File:         getEnv("LOG_FILE", ""),
			RotationTime: getEnvDuration("LOG_ROTATION_TIME", 24*time.Hour),
			MaxAge:       getEnvDuration("LOG_MAX_AGE", 7*24*time.Hour),
		},

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "simple-admission"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		InviteTTL:       getEnvDuration("INVITE_TTL", 7*24*time.Hour),
		AdminKeyHash:    getEnv("ADMIN_API_KEY_HASH", ""),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// HasSMTP returns true if outgoing mail is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != ""
}

// HasAdminKey returns true if admin routes can be authorized.
func (c *Config) HasAdminKey() bool {
	return c.AdminKeyHash != ""
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
