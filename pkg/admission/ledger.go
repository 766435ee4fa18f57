package admission

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/pkg/domain"
)

const (
	inviteTokenBytes    = 32
	inviteCreateRetries = 3
)

// Ledger issues and tracks invites.
type Ledger struct {
	store InviteStore
	ttl   time.Duration
	clock clockwork.Clock
}

// NewLedger creates a ledger issuing invites valid for ttl.
func NewLedger(store InviteStore, ttl time.Duration, clock clockwork.Clock) *Ledger {
	if ttl <= 0 {
		ttl = domain.InviteTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{store: store, ttl: ttl, clock: clock}
}

// Create issues a fresh unused invite for an intention.
func (l *Ledger) Create(ctx context.Context, intentionID uuid.UUID) (*domain.Invite, error) {
	for attempt := 0; ; attempt++ {
		token, err := generateToken(inviteTokenBytes)
		if err != nil {
			return nil, fmt.Errorf("generate invite token: %w", err)
		}

		now := l.clock.Now().UTC()
		invite := &domain.Invite{
			ID:          uuid.New(),
			Token:       token,
			IntentionID: intentionID,
			ExpiresAt:   now.Add(l.ttl),
			CreatedAt:   now,
		}
		err = l.store.Create(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, domain.ErrInviteTokenTaken) || attempt+1 >= inviteCreateRetries {
			return nil, fmt.Errorf("create invite: %w", err)
		}
	}
}

// FindByToken returns the invite for token. Expired invites read as
// ErrInviteNotFound; used invites that have not expired are returned.
func (l *Ledger) FindByToken(ctx context.Context, token string) (*domain.Invite, error) {
	invite, err := l.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !l.clock.Now().Before(invite.ExpiresAt) {
		return nil, domain.ErrInviteNotFound
	}
	return invite, nil
}

// Validate returns the invite if it can be redeemed, or exactly one of
// ErrInviteNotFound, ErrInviteAlreadyUsed or ErrInviteExpired.
func (l *Ledger) Validate(ctx context.Context, token string) (*domain.Invite, error) {
	if token == "" {
		return nil, domain.ErrInviteNotFound
	}
	invite, err := l.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := invite.Err(l.clock.Now()); err != nil {
		return nil, err
	}
	return invite, nil
}

// MarkUsed flags the invite as used. It is idempotent.
func (l *Ledger) MarkUsed(ctx context.Context, token string) error {
	return l.store.MarkUsed(ctx, token, l.clock.Now().UTC())
}

// ListByIntention returns every invite issued for an intention.
func (l *Ledger) ListByIntention(ctx context.Context, intentionID uuid.UUID) ([]*domain.Invite, error) {
	return l.store.ListByIntention(ctx, intentionID)
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
