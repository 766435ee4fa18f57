package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/domain"
)

// MemberLookup loads members by ID.
type MemberLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
}

// RequireActive creates middleware that requires the authenticated member to
// exist and be active. Must be used after Auth middleware.
func RequireActive(members MemberLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID, ok := GetMemberID(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			member, err := members.GetByID(r.Context(), memberID)
			if err != nil {
				if errors.Is(err, domain.ErrMemberNotFound) {
					httputil.Error(w, http.StatusUnauthorized, "authentication required")
					return
				}
				logger.Error("failed to load member", "member_id", memberID, logging.Err(err))
				httputil.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !member.Active {
				httputil.Error(w, http.StatusForbidden, "member account is inactive")
				return
			}

			ctx := context.WithValue(r.Context(), MemberKey, member)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
