package invites

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-admission/internal/http/features/common"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/domain"
)

// Handler handles public invite lookups.
type Handler struct {
	logger *slog.Logger
	gate   *admission.Gate
}

// NewHandler creates a new invites handler.
func NewHandler(logger *slog.Logger, gate *admission.Gate) *Handler {
	return &Handler{logger: logger, gate: gate}
}

// Applicant is the public summary of who an invite was issued to.
type Applicant struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// CheckResponse describes a redeemable invite.
type CheckResponse struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
	Applicant Applicant `json:"applicant"`
}

// InvalidResponse explains why an invite cannot be used.
type InvalidResponse struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Check reports whether an invite can still be redeemed.
// GET /v1/invites/{token}
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	summary, err := h.gate.Check(r.Context(), token)
	switch {
	case err == nil:
		httputil.JSON(w, http.StatusOK, CheckResponse{
			Valid:     true,
			ExpiresAt: summary.Invite.ExpiresAt,
			Applicant: Applicant{
				Name:    summary.Applicant.Name,
				Email:   summary.Applicant.Email,
				Company: summary.Applicant.Company,
			},
		})
	case errors.Is(err, domain.ErrInviteNotFound):
		httputil.JSON(w, http.StatusNotFound, InvalidResponse{Error: "invite not found", Reason: "not_found"})
	case errors.Is(err, domain.ErrInviteAlreadyUsed):
		httputil.JSON(w, http.StatusConflict, InvalidResponse{Error: "invite already used", Reason: "used"})
	case errors.Is(err, domain.ErrInviteExpired):
		httputil.JSON(w, http.StatusGone, InvalidResponse{Error: "invite expired", Reason: "expired"})
	default:
		common.WriteError(w, r, h.logger, err)
	}
}
