package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/domain"
)

// WriteError maps service errors to HTTP responses. Anything unrecognised is
// logged and answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		httputil.ValidationError(w, verr)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidIntentionStatus):
		httputil.ValidationError(w, domain.NewValidationError("status", "must be one of pending, approved, rejected"))
	case errors.Is(err, domain.ErrIntentionNotFound):
		httputil.Error(w, http.StatusNotFound, "intention not found")
	case errors.Is(err, domain.ErrInviteNotFound):
		httputil.Error(w, http.StatusNotFound, "invite not found")
	case errors.Is(err, domain.ErrMemberNotFound):
		httputil.Error(w, http.StatusNotFound, "member not found")
	case errors.Is(err, domain.ErrInviteAlreadyUsed):
		httputil.Error(w, http.StatusConflict, "invite already used")
	case errors.Is(err, domain.ErrInviteExpired):
		httputil.Error(w, http.StatusGone, "invite expired")
	case errors.Is(err, domain.ErrInvalidTransition):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrIntentionNotApproved):
		httputil.Error(w, http.StatusConflict, "intention is not approved")
	case errors.Is(err, domain.ErrMemberAlreadyExists):
		httputil.Error(w, http.StatusConflict, "a member with this email already exists")
	case errors.Is(err, domain.ErrInvalidToken):
		httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, domain.ErrMemberInactive):
		httputil.Error(w, http.StatusForbidden, "member account is inactive")
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			logging.Err(err),
		)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
