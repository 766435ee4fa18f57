package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/domain"
	"github.com/tendant/simple-admission/pkg/validate"
)

// Registration carries the invite token and the optional profile fields a
// member supplies when joining.
type Registration struct {
	Token    string  `json:"token" validate:"required,max=128"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	JobTitle *string `json:"job_title,omitempty" validate:"omitempty,max=120"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url,max=300"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
}

// InviteSummary describes a redeemable invite and who it was issued to.
type InviteSummary struct {
	Invite    *domain.Invite
	Applicant *domain.Intention
}

// Gate admits new members by redeeming invites.
type Gate struct {
	ledger      *Ledger
	intentions  IntentionStore
	redemptions RedemptionStore
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewGate creates a new admission gate.
func NewGate(ledger *Ledger, intentions IntentionStore, redemptions RedemptionStore, clock clockwork.Clock, logger *slog.Logger) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		ledger:      ledger,
		intentions:  intentions,
		redemptions: redemptions,
		clock:       clock,
		logger:      logger,
	}
}

// Check reports whether token can be redeemed and, if so, who it belongs to.
func (g *Gate) Check(ctx context.Context, token string) (*InviteSummary, error) {
	invite, err := g.ledger.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	intention, err := g.intentions.GetByID(ctx, invite.IntentionID)
	if errors.Is(err, domain.ErrIntentionNotFound) {
		g.logger.Error("invite references missing intention",
			"invite_id", invite.ID,
			"intention_id", invite.IntentionID,
		)
		return nil, domain.ErrInviteOrphaned
	}
	if err != nil {
		return nil, err
	}
	return &InviteSummary{Invite: invite, Applicant: intention}, nil
}

// Redeem consumes the invite and creates a member from the originating
// intention plus the supplied profile. Member creation and invite
// consumption succeed or fail together.
func (g *Gate) Redeem(ctx context.Context, reg Registration) (*domain.Member, error) {
	reg.Token = validate.Text(reg.Token)
	profile := domain.Profile{
		Phone:    validate.OptionalText(reg.Phone),
		JobTitle: validate.OptionalText(reg.JobTitle),
		Website:  validate.OptionalText(reg.Website),
		Bio:      validate.OptionalText(reg.Bio),
	}
	reg.Phone, reg.JobTitle, reg.Website, reg.Bio = profile.Phone, profile.JobTitle, profile.Website, profile.Bio
	if err := validate.Struct(reg); err != nil {
		return nil, err
	}

	if _, err := g.ledger.Validate(ctx, reg.Token); err != nil {
		return nil, err
	}

	now := g.clock.Now().UTC()
	member, err := g.redemptions.Redeem(ctx, reg.Token, now, func(i *domain.Intention) *domain.Member {
		return newMember(i, profile, now)
	})
	if errors.Is(err, domain.ErrInviteOrphaned) {
		g.logger.Error("invite references missing intention", logging.Secret("token", reg.Token))
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("redeem invite: %w", err)
	}

	g.logger.Info("member registered", "member_id", member.ID, "intention_id", member.IntentionID)
	return member, nil
}

func newMember(i *domain.Intention, p domain.Profile, now time.Time) *domain.Member {
	intentionID := i.ID
	return &domain.Member{
		ID:          uuid.New(),
		IntentionID: &intentionID,
		Name:        i.Name,
		Email:       i.Email,
		Company:     i.Company,
		Phone:       p.Phone,
		JobTitle:    p.JobTitle,
		Website:     p.Website,
		Bio:         p.Bio,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

