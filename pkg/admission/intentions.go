package admission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/pkg/domain"
	"github.com/tendant/simple-admission/pkg/validate"
)

// Submission is an applicant's request to join.
type Submission struct {
	Name    string `json:"name" validate:"required,min=2,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Company string `json:"company" validate:"required,min=2,max=200"`
	Reason  string `json:"reason" validate:"required,min=10,max=2000"`
}

// IntentionService manages intentions and their review status.
type IntentionService struct {
	store       IntentionStore
	emailPolicy validate.EmailPolicy
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewIntentionService creates a new intention service.
func NewIntentionService(store IntentionStore, emailPolicy validate.EmailPolicy, clock clockwork.Clock, logger *slog.Logger) *IntentionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentionService{
		store:       store,
		emailPolicy: emailPolicy,
		clock:       clock,
		logger:      logger,
	}
}

// Submit validates and stores a new pending intention.
func (s *IntentionService) Submit(ctx context.Context, sub Submission) (*domain.Intention, error) {
	sub.Name = validate.Line(sub.Name)
	sub.Email = validate.NormalizeEmail(sub.Email)
	sub.Company = validate.Line(sub.Company)
	sub.Reason = validate.Text(sub.Reason)

	if err := validate.Struct(sub); err != nil {
		return nil, err
	}
	if err := s.emailPolicy.Email(sub.Email); err != nil {
		return nil, domain.NewValidationError("email", err.Error())
	}

	now := s.clock.Now().UTC()
	intention := &domain.Intention{
		ID:        uuid.New(),
		Name:      sub.Name,
		Email:     sub.Email,
		Company:   sub.Company,
		Reason:    sub.Reason,
		Status:    domain.IntentionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, intention); err != nil {
		return nil, fmt.Errorf("create intention: %w", err)
	}

	s.logger.Info("intention submitted", "intention_id", intention.ID)
	return intention, nil
}

// Get returns an intention by ID.
func (s *IntentionService) Get(ctx context.Context, id uuid.UUID) (*domain.Intention, error) {
	return s.store.GetByID(ctx, id)
}

// List returns intentions, newest first, optionally filtered by status.
func (s *IntentionService) List(ctx context.Context, status *domain.IntentionStatus, limit int) ([]*domain.Intention, error) {
	if status != nil && !status.Valid() {
		return nil, domain.ErrInvalidIntentionStatus
	}
	return s.store.List(ctx, status, limit)
}

// SetStatus moves an intention to next if the transition table allows it.
// The update is conditional on the current status, so two reviewers racing
// cannot both move the same intention out of pending to different outcomes.
func (s *IntentionService) SetStatus(ctx context.Context, id uuid.UUID, next domain.IntentionStatus) (*domain.Intention, error) {
	if !next.Valid() {
		return nil, domain.ErrInvalidIntentionStatus
	}

	ok, err := s.store.UpdateStatus(ctx, id, next, domain.AllowedPredecessors(next), s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update intention status: %w", err)
	}
	if !ok {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, current.Status, next)
	}

	intention, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("intention status updated", "intention_id", id, "status", next)
	return intention, nil
}
