// Package auth issues and verifies the signed tokens members use after
// joining, and keeps the blacklist of tokens revoked before they expire.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/pkg/domain"
)

// Default token lifetimes
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenConfig holds signing configuration.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Kind  domain.TokenKind `json:"kind"`
	Email string           `json:"email,omitempty"`
	Name  string           `json:"name,omitempty"`
}

// SubjectID returns the member ID carried in the subject claim.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Identity is the information embedded in an issued token.
type Identity struct {
	SubjectID uuid.UUID
	Email     string
	Name      string
}

// RevocationStore persists revoked tokens. Create reports whether the row
// was inserted, so exactly one of several concurrent revocations of the same
// token sees true.
type RevocationStore interface {
	Create(ctx context.Context, t *domain.RevokedToken) (bool, error)
	Exists(ctx context.Context, tokenHash string) (bool, error)
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	config  TokenConfig
	revoked RevocationStore
	clock   clockwork.Clock
}

// NewTokenIssuer creates a new token issuer.
func NewTokenIssuer(config TokenConfig, revoked RevocationStore, clock clockwork.Clock) *TokenIssuer {
	if config.AccessTTL == 0 {
		config.AccessTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTTL == 0 {
		config.RefreshTTL = DefaultRefreshTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{config: config, revoked: revoked, clock: clock}
}

// AccessTokenTTL returns the access token TTL.
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.config.AccessTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (i *TokenIssuer) RefreshTokenTTL() time.Duration {
	return i.config.RefreshTTL
}

// IssueAccess signs a short-lived access token.
func (i *TokenIssuer) IssueAccess(id Identity) (string, time.Time, error) {
	return i.issue(id, domain.TokenKindAccess, i.config.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token.
func (i *TokenIssuer) IssueRefresh(id Identity) (string, time.Time, error) {
	return i.issue(id, domain.TokenKindRefresh, i.config.RefreshTTL)
}

func (i *TokenIssuer) issue(id Identity, kind domain.TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    i.config.Issuer,
			ID:        uuid.NewString(),
		},
		Kind:  kind,
		Email: id.Email,
		Name:  id.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, expiry, issuer and kind of a token. Any
// failure yields nil.
func (i *TokenIssuer) Parse(tokenString string, kind domain.TokenKind) *Claims {
	if tokenString == "" {
		return nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if i.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return i.config.Secret, nil
	}, opts...)
	if err != nil {
		return nil
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil
	}
	return claims
}

// Blacklist records token as revoked until expiresAt. It returns false when
// the token was already revoked.
func (i *TokenIssuer) Blacklist(ctx context.Context, token string, subjectID uuid.UUID, kind domain.TokenKind, expiresAt time.Time) (bool, error) {
	if i.revoked == nil {
		return false, errors.New("token revocation is not configured")
	}
	return i.revoked.Create(ctx, &domain.RevokedToken{
		ID:        uuid.New(),
		TokenHash: HashToken(token),
		SubjectID: subjectID,
		Kind:      kind,
		ExpiresAt: expiresAt,
		RevokedAt: i.clock.Now(),
	})
}

// IsRevoked reports whether token has been blacklisted.
func (i *TokenIssuer) IsRevoked(ctx context.Context, token string) (bool, error) {
	if i.revoked == nil {
		return false, nil
	}
	return i.revoked.Exists(ctx, HashToken(token))
}

// HashToken returns the hex SHA-256 of a token. Revocation rows store only
// this digest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
