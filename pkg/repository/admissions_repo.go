package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-admission/pkg/domain"
)

// AdmissionsRepository performs the multi-table write that turns an invite
// into a member.
type AdmissionsRepository struct {
	db         *DB
	invites    *InvitesRepository
	intentions *IntentionsRepository
	members    *MembersRepository
}

// NewAdmissionsRepository creates a new admissions repository.
func NewAdmissionsRepository(db *DB) *AdmissionsRepository {
	return &AdmissionsRepository{
		db:         db,
		invites:    NewInvitesRepository(db),
		intentions: NewIntentionsRepository(db),
		members:    NewMembersRepository(db),
	}
}

// Redeem claims the invite, loads its intention and inserts the member built
// by newMember, all in one transaction. If any step fails the claim is rolled
// back and the invite stays usable.
func (r *AdmissionsRepository) Redeem(
	ctx context.Context,
	token string,
	now time.Time,
	newMember func(*domain.Intention) *domain.Member,
) (*domain.Member, error) {
	var member *domain.Member
	err := r.db.Tx(ctx, func(tx *sqlx.Tx) error {
		claimed, err := r.invites.ClaimTx(ctx, tx, token, now)
		if err != nil {
			return err
		}

		invite, err := r.invites.GetByTokenTx(ctx, tx, token)
		if err != nil {
			return err
		}
		if !claimed {
			if err := invite.Err(now); err != nil {
				return err
			}
			return domain.ErrInviteAlreadyUsed
		}

		intention, err := r.intentions.GetByIDTx(ctx, tx, invite.IntentionID)
		if errors.Is(err, domain.ErrIntentionNotFound) {
			return domain.ErrInviteOrphaned
		}
		if err != nil {
			return err
		}

		m := newMember(intention)
		if err := r.members.CreateTx(ctx, tx, m); err != nil {
			return err
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}
