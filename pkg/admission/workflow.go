package admission

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/domain"
)

// StatusChange is the result of a review decision. When approval could not
// produce an invite, Invite is nil and InviteError holds the cause; the
// status change itself still stands.
type StatusChange struct {
	Intention   *domain.Intention
	Invite      *domain.Invite
	InviteURL   string
	InviteError error
}

// Workflow ties review decisions to invite issuance.
type Workflow struct {
	intentions *IntentionService
	ledger     *Ledger
	notifier   Notifier
	baseURL    string
	logger     *slog.Logger
}

// NewWorkflow creates a new approval workflow. notifier may be nil.
func NewWorkflow(intentions *IntentionService, ledger *Ledger, notifier Notifier, baseURL string, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		intentions: intentions,
		ledger:     ledger,
		notifier:   notifier,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// SetIntentionStatus applies a review decision. Each call that results in
// approved makes exactly one invite creation attempt.
func (w *Workflow) SetIntentionStatus(ctx context.Context, id uuid.UUID, status domain.IntentionStatus) (*StatusChange, error) {
	intention, err := w.intentions.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	change := &StatusChange{Intention: intention}
	if !intention.IsApproved() {
		return change, nil
	}

	invite, inviteURL, err := w.issue(ctx, intention)
	if err != nil {
		w.logger.Error("failed to create invite after approval",
			"intention_id", intention.ID,
			logging.Err(err),
		)
		change.InviteError = err
		return change, nil
	}
	change.Invite = invite
	change.InviteURL = inviteURL
	return change, nil
}

// IssueInvite creates a new invite for an already approved intention.
func (w *Workflow) IssueInvite(ctx context.Context, id uuid.UUID) (*domain.Invite, string, error) {
	intention, err := w.intentions.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !intention.IsApproved() {
		return nil, "", domain.ErrIntentionNotApproved
	}
	return w.issue(ctx, intention)
}

// InviteURL returns the registration link for an invite token.
func (w *Workflow) InviteURL(token string) string {
	return fmt.Sprintf("%s/register/%s", w.baseURL, url.PathEscape(token))
}

func (w *Workflow) issue(ctx context.Context, intention *domain.Intention) (*domain.Invite, string, error) {
	invite, err := w.ledger.Create(ctx, intention.ID)
	if err != nil {
		return nil, "", err
	}
	inviteURL := w.InviteURL(invite.Token)
	w.logger.Info("invite created",
		"intention_id", intention.ID,
		"invite_id", invite.ID,
		"expires_at", invite.ExpiresAt,
	)

	if w.notifier != nil {
		if err := w.notifier.SendInviteEmail(intention.Email, intention.Name, inviteURL); err != nil {
			w.logger.Error("failed to send invite email", "intention_id", intention.ID, logging.Err(err))
		}
	}
	return invite, inviteURL, nil
}
