package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/auth"
	"github.com/tendant/simple-admission/pkg/domain"
)

type contextKey string

const (
	// MemberIDKey is the context key for the authenticated member ID.
	MemberIDKey contextKey = "member_id"
	// ClaimsKey is the context key for the token claims.
	ClaimsKey contextKey = "claims"
	// MemberKey is the context key for the loaded member.
	MemberKey contextKey = "member"
	// AccessTokenKey is the context key for the raw access token.
	AccessTokenKey contextKey = "access_token"
)

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// Auth creates middleware that validates access tokens.
// Checks Authorization header first, then falls back to cookie for web clients.
func Auth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := httputil.AccessToken(r)
			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims, err := authenticator.Authenticate(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				logger.Error("token verification failed", "path", r.URL.Path, logging.Err(err))
				httputil.Error(w, http.StatusServiceUnavailable, "authentication temporarily unavailable")
				return
			}

			memberID, err := claims.SubjectID()
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			ctx := context.WithValue(r.Context(), MemberIDKey, memberID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			ctx = context.WithValue(ctx, AccessTokenKey, tokenString)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetMemberID extracts the member ID from the request context.
func GetMemberID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(MemberIDKey).(uuid.UUID)
	return id, ok
}

// GetClaims extracts the token claims from the request context.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// GetMember extracts the member loaded by RequireActive.
func GetMember(ctx context.Context) (*domain.Member, bool) {
	member, ok := ctx.Value(MemberKey).(*domain.Member)
	return member, ok
}
