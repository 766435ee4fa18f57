package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind distinguishes short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// RevokedToken records a signed token that must no longer be accepted.
type RevokedToken struct {
	ID        uuid.UUID
	TokenHash string
	SubjectID uuid.UUID
	Kind      TokenKind
	ExpiresAt time.Time
	RevokedAt time.Time
}

// TokenPair represents the access and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RateLimitEntry is the persisted counter for one key's current window.
type RateLimitEntry struct {
	ID        uuid.UUID
	Key       string
	Count     int
	ResetAt   time.Time
	CreatedAt time.Time
}
