package members

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/http/features/common"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/domain"
)

// Directory lists and updates members.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	List(ctx context.Context, limit int) ([]*domain.Member, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error
}

// Handler handles member endpoints.
type Handler struct {
	logger    *slog.Logger
	gate      *admission.Gate
	directory Directory
	clock     clockwork.Clock
}

// NewHandler creates a new members handler.
func NewHandler(logger *slog.Logger, gate *admission.Gate, directory Directory, clock clockwork.Clock) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		logger:    logger,
		gate:      gate,
		directory: directory,
		clock:     clock,
	}
}

// ActiveRequest toggles a member's access.
type ActiveRequest struct {
	Active *bool `json:"active"`
}

// Register redeems an invite and creates the member.
// POST /v1/members
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req admission.Registration
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	member, err := h.gate.Redeem(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, common.NewMemberResponse(member))
}

// List returns members, newest first.
// GET /v1/admin/members?limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.ValidationError(w, domain.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = min(n, 200)
	}

	members, err := h.directory.List(r.Context(), limit)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	resp := make([]common.MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, common.NewMemberResponse(m))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"members": resp})
}

// SetActive activates or deactivates a member. Deactivated members cannot
// log in, refresh, or use existing access tokens on protected routes.
// PATCH /v1/admin/members/{id}/active
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.ValidationError(w, domain.NewValidationError("id", "must be a valid UUID"))
		return
	}

	var req ActiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	if req.Active == nil {
		httputil.ValidationError(w, domain.NewValidationError("active", "is required"))
		return
	}

	if err := h.directory.SetActive(r.Context(), id, *req.Active, h.clock.Now().UTC()); err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	member, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	h.logger.Info("member access updated", "member_id", id, "active", *req.Active)
	httputil.JSON(w, http.StatusOK, common.NewMemberResponse(member))
}
