package domain

import (
	"time"

	"github.com/google/uuid"
)

// IntentionStatus is the review state of an application to join.
type IntentionStatus string

const (
	IntentionPending  IntentionStatus = "pending"
	IntentionApproved IntentionStatus = "approved"
	IntentionRejected IntentionStatus = "rejected"
)

// transitions lists, for each current status, the statuses it may move to.
// Same-status entries are accepted as no-ops.
var transitions = map[IntentionStatus][]IntentionStatus{
	IntentionPending:  {IntentionPending, IntentionApproved, IntentionRejected},
	IntentionApproved: {IntentionApproved},
	IntentionRejected: {IntentionRejected},
}

// ParseIntentionStatus converts a raw value into a known status.
func ParseIntentionStatus(s string) (IntentionStatus, error) {
	status := IntentionStatus(s)
	if !status.Valid() {
		return "", ErrInvalidIntentionStatus
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s IntentionStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s IntentionStatus) CanTransitionTo(next IntentionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedPredecessors returns the statuses from which next can be reached.
func AllowedPredecessors(next IntentionStatus) []IntentionStatus {
	var from []IntentionStatus
	for _, s := range []IntentionStatus{IntentionPending, IntentionApproved, IntentionRejected} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// Intention is a request from a prospective member to join.
type Intention struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Company   string
	Reason    string
	Status    IntentionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsApproved returns true if the intention has been approved.
func (i *Intention) IsApproved() bool {
	return i.Status == IntentionApproved
}
