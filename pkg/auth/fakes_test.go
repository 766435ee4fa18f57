package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/pkg/domain"
)

type memRevocations struct {
	mu     sync.Mutex
	hashes map[string]*domain.RevokedToken
	err    error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{hashes: make(map[string]*domain.RevokedToken)}
}

func (m *memRevocations) Create(_ context.Context, t *domain.RevokedToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.hashes[t.TokenHash]; ok {
		return false, nil
	}
	m.hashes[t.TokenHash] = t
	return true, nil
}

func (m *memRevocations) Exists(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.hashes[hash]
	return ok, nil
}

type memMembers struct {
	byID map[uuid.UUID]*domain.Member
}

func newMemMembers(members ...*domain.Member) *memMembers {
	m := &memMembers{byID: make(map[uuid.UUID]*domain.Member)}
	for _, member := range members {
		m.byID[member.ID] = member
	}
	return m
}

func (m *memMembers) GetByID(_ context.Context, id uuid.UUID) (*domain.Member, error) {
	member, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

func (m *memMembers) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	for _, member := range m.byID {
		if member.Email == email {
			return member, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

var errStoreDown = errors.New("store down")
