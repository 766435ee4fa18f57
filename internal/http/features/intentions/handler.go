package intentions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-admission/internal/http/features/common"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler handles intention endpoints.
type Handler struct {
	logger     *slog.Logger
	intentions *admission.IntentionService
	workflow   *admission.Workflow
	ledger     *admission.Ledger
}

// NewHandler creates a new intentions handler.
func NewHandler(
	logger *slog.Logger,
	intentions *admission.IntentionService,
	workflow *admission.Workflow,
	ledger *admission.Ledger,
) *Handler {
	return &Handler{
		logger:     logger,
		intentions: intentions,
		workflow:   workflow,
		ledger:     ledger,
	}
}

// StatusRequest represents a review decision.
type StatusRequest struct {
	Status string `json:"status"`
}

// StatusResponse reports the outcome of a review decision.
type StatusResponse struct {
	Intention   common.IntentionResponse `json:"intention"`
	Invite      *common.InviteResponse   `json:"invite,omitempty"`
	InviteURL   string                   `json:"invite_url,omitempty"`
	InviteError string                   `json:"invite_error,omitempty"`
}

// DetailResponse is an intention with its invites.
type DetailResponse struct {
	common.IntentionResponse
	Invites []common.InviteResponse `json:"invites"`
}

// IssuedInviteResponse is a manually issued invite.
type IssuedInviteResponse struct {
	Invite    common.InviteResponse `json:"invite"`
	InviteURL string                `json:"invite_url"`
}

// Submit records a membership request.
// POST /v1/intentions
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req admission.Submission
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	intention, err := h.intentions.Submit(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, common.NewIntentionResponse(intention))
}

// List returns intentions, newest first.
// GET /v1/admin/intentions?status=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.IntentionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := domain.ParseIntentionStatus(raw)
		if err != nil {
			common.WriteError(w, r, h.logger, err)
			return
		}
		status = &s
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.ValidationError(w, domain.NewValidationError("limit", "must be a positive integer"))
		return
	}

	intentions, err := h.intentions.List(r.Context(), status, limit)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	resp := make([]common.IntentionResponse, 0, len(intentions))
	for _, i := range intentions {
		resp = append(resp, common.NewIntentionResponse(i))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"intentions": resp})
}

// Get returns one intention with its invites.
// GET /v1/admin/intentions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	intention, err := h.intentions.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	invites, err := h.ledger.ListByIntention(r.Context(), id)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	resp := DetailResponse{
		IntentionResponse: common.NewIntentionResponse(intention),
		Invites:           make([]common.InviteResponse, 0, len(invites)),
	}
	for _, inv := range invites {
		resp.Invites = append(resp.Invites, common.NewInviteResponse(inv))
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// SetStatus applies a review decision. Approval issues an invite; a failure
// to do so is reported alongside the committed status change.
// PATCH /v1/admin/intentions/{id}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	status, err := domain.ParseIntentionStatus(req.Status)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	change, err := h.workflow.SetIntentionStatus(r.Context(), id, status)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	resp := StatusResponse{Intention: common.NewIntentionResponse(change.Intention)}
	if change.Invite != nil {
		inv := common.NewInviteResponse(change.Invite)
		resp.Invite = &inv
		resp.InviteURL = change.InviteURL
	}
	if change.InviteError != nil {
		resp.InviteError = "invite could not be created; retry with POST /v1/admin/intentions/" + id.String() + "/invites"
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// IssueInvite creates a fresh invite for an approved intention.
// POST /v1/admin/intentions/{id}/invites
func (h *Handler) IssueInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	invite, inviteURL, err := h.workflow.IssueInvite(r.Context(), id)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, IssuedInviteResponse{
		Invite:    common.NewInviteResponse(invite),
		InviteURL: inviteURL,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.ValidationError(w, domain.NewValidationError("id", "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
