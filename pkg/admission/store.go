// Package admission implements the path from an application to join, through
// review and invitation, to a registered member.
package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/pkg/domain"
)

// IntentionStore persists intentions.
type IntentionStore interface {
	Create(ctx context.Context, intention *domain.Intention) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Intention, error)
	List(ctx context.Context, status *domain.IntentionStatus, limit int) ([]*domain.Intention, error)
	// UpdateStatus sets next only when the current status is in from and
	// reports whether a row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, next domain.IntentionStatus, from []domain.IntentionStatus, now time.Time) (bool, error)
}

// InviteStore persists invites.
type InviteStore interface {
	Create(ctx context.Context, invite *domain.Invite) error
	GetByToken(ctx context.Context, token string) (*domain.Invite, error)
	ListByIntention(ctx context.Context, intentionID uuid.UUID) ([]*domain.Invite, error)
	MarkUsed(ctx context.Context, token string, now time.Time) error
}

// RedemptionStore atomically consumes an invite and creates the member built
// from its intention. On any failure the invite must remain unused.
type RedemptionStore interface {
	Redeem(ctx context.Context, token string, now time.Time, newMember func(*domain.Intention) *domain.Member) (*domain.Member, error)
}

// Notifier delivers invite links to approved applicants.
type Notifier interface {
	SendInviteEmail(to, name, inviteURL string) error
}
