package config

import (
	"os"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	// Clear any other env vars that might interfere
	envVars := []string{
		"SERVER_ADDR", "SERVER_PORT", "DB_DRIVER", "DB_HOST", "DB_PORT", "DB_SSLMODE",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_LOGIN_REQUESTS", "RATE_LIMIT_LOGIN_WINDOW",
		"RATE_LIMIT_REFRESH_REQUESTS", "RATE_LIMIT_REFRESH_WINDOW", "INVITE_TTL",
		"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "SMTP_HOST", "ADMIN_API_KEY_HASH",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = false, want true")
	}
	if cfg.RateLimit.LoginRequests != 5 || cfg.RateLimit.LoginWindow != 15*time.Minute {
		t.Errorf("login policy = %d per %v, want 5 per 15m", cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow)
	}
	if cfg.RateLimit.RefreshRequests != 10 || cfg.RateLimit.RefreshWindow != time.Hour {
		t.Errorf("refresh policy = %d per %v, want 10 per 1h", cfg.RateLimit.RefreshRequests, cfg.RateLimit.RefreshWindow)
	}
	if cfg.RateLimit.TrustProxyHeaders {
		t.Error("RateLimit.TrustProxyHeaders = true, want false")
	}
	if cfg.InviteTTL != 7*24*time.Hour {
		t.Errorf("InviteTTL = %v, want %v", cfg.InviteTTL, 7*24*time.Hour)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want %v", cfg.AccessTokenTTL, 15*time.Minute)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %v, want %v", cfg.RefreshTokenTTL, 7*24*time.Hour)
	}
	if cfg.HasSMTP() || cfg.HasAdminKey() {
		t.Error("optional integrations enabled without configuration")
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		driver string
	}{
		{name: "missing secret", secret: ""},
		{name: "short secret", secret: "too-short"},
		{name: "unknown driver", secret: testSecret, driver: "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("DB_DRIVER", tt.driver)
			if _, err := Load(); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/admission.db")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_LOGIN_REQUESTS", "3")
	t.Setenv("RATE_LIMIT_TRUST_PROXY_HEADERS", "true")
	t.Setenv("INVITE_TTL", "48h")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/admission.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want %v", cfg.AccessTokenTTL, 30*time.Minute)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false")
	}
	if cfg.RateLimit.LoginRequests != 3 {
		t.Errorf("LoginRequests = %d, want 3", cfg.RateLimit.LoginRequests)
	}
	if !cfg.RateLimit.TrustProxyHeaders {
		t.Error("RateLimit.TrustProxyHeaders = false, want true")
	}
	if cfg.InviteTTL != 48*time.Hour {
		t.Errorf("InviteTTL = %v, want 48h", cfg.InviteTTL)
	}
	if !cfg.HasSMTP() {
		t.Error("HasSMTP() = false, want true")
	}
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")

	if got := getEnvInt("X_INT", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want 7", got)
	}
	if got := getEnvBool("X_BOOL", true); !got {
		t.Error("getEnvBool = false, want true")
	}
	if got := getEnvDuration("X_DUR", time.Second); got != time.Second {
		t.Errorf("getEnvDuration = %v, want 1s", got)
	}
}
