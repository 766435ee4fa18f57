package domain

import (
	"time"

	"github.com/google/uuid"
)

// InviteTTL is the default lifetime of an invite.
const InviteTTL = 7 * 24 * time.Hour

// InviteState classifies an invite at a point in time.
type InviteState int

const (
	InviteUsable InviteState = iota
	InviteUsed
	InviteExpiredState
)

// Invite is a single-use token permitting one registration.
type Invite struct {
	ID          uuid.UUID
	Token       string
	IntentionID uuid.UUID
	Used        bool
	UsedAt      *time.Time
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// State returns the state of the invite at now. A used invite reports
// InviteUsed even after it has expired.
func (i *Invite) State(now time.Time) InviteState {
	if i.Used {
		return InviteUsed
	}
	if !now.Before(i.ExpiresAt) {
		return InviteExpiredState
	}
	return InviteUsable
}

// Err returns the sentinel error matching the invite's state at now, or nil
// when it can be redeemed.
func (i *Invite) Err(now time.Time) error {
	switch i.State(now) {
	case InviteUsed:
		return ErrInviteAlreadyUsed
	case InviteExpiredState:
		return ErrInviteExpired
	default:
		return nil
	}
}
