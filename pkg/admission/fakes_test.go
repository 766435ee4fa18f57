package admission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/pkg/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore implements every store interface in memory, sharing state the way
// the SQL repositories share one database.
type memStore struct {
	mu         sync.Mutex
	intentions map[uuid.UUID]*domain.Intention
	invites    map[string]*domain.Invite
	members    map[string]*domain.Member

	createInviteErr error
	takenTokens     int
}

func newMemStore() *memStore {
	return &memStore{
		intentions: make(map[uuid.UUID]*domain.Intention),
		invites:    make(map[string]*domain.Invite),
		members:    make(map[string]*domain.Member),
	}
}

func (s *memStore) Create(_ context.Context, i *domain.Intention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *i
	s.intentions[i.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Intention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.intentions[id]
	if !ok {
		return nil, domain.ErrIntentionNotFound
	}
	cp := *i
	return &cp, nil
}

func (s *memStore) List(_ context.Context, status *domain.IntentionStatus, limit int) ([]*domain.Intention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Intention
	for _, i := range s.intentions {
		if status != nil && i.Status != *status {
			continue
		}
		cp := *i
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, next domain.IntentionStatus, from []domain.IntentionStatus, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.intentions[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if i.Status == f {
			i.Status = next
			i.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

// inviteStore adapts memStore to InviteStore, whose Create collides with
// IntentionStore.Create.
type inviteStore struct{ *memStore }

func (s inviteStore) Create(_ context.Context, inv *domain.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createInviteErr != nil {
		return s.createInviteErr
	}
	if s.takenTokens > 0 {
		s.takenTokens--
		return domain.ErrInviteTokenTaken
	}
	if _, ok := s.invites[inv.Token]; ok {
		return domain.ErrInviteTokenTaken
	}
	cp := *inv
	s.invites[inv.Token] = &cp
	return nil
}

func (s inviteStore) GetByToken(_ context.Context, token string) (*domain.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[token]
	if !ok {
		return nil, domain.ErrInviteNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s inviteStore) ListByIntention(_ context.Context, id uuid.UUID) ([]*domain.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Invite
	for _, inv := range s.invites {
		if inv.IntentionID == id {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s inviteStore) MarkUsed(_ context.Context, token string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[token]
	if !ok {
		return domain.ErrInviteNotFound
	}
	if !inv.Used {
		inv.Used = true
		inv.UsedAt = &now
	}
	return nil
}

func (s *memStore) Redeem(_ context.Context, token string, now time.Time, newMember func(*domain.Intention) *domain.Member) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[token]
	if !ok {
		return nil, domain.ErrInviteNotFound
	}
	if err := inv.Err(now); err != nil {
		return nil, err
	}
	intention, ok := s.intentions[inv.IntentionID]
	if !ok {
		return nil, domain.ErrInviteOrphaned
	}
	m := newMember(intention)
	if _, ok := s.members[m.Email]; ok {
		return nil, domain.ErrMemberAlreadyExists
	}
	s.members[m.Email] = m
	inv.Used = true
	inv.UsedAt = &now
	return m, nil
}

type sentEmail struct {
	to, name, url string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *recordingNotifier) SendInviteEmail(to, name, inviteURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{to: to, name: name, url: inviteURL})
	return n.err
}

var errStoreDown = errors.New("store down")
