package domain

import (
	"errors"
	"sort"
	"strings"
)

// Intention errors
var (
	ErrIntentionNotFound      = errors.New("intention not found")
	ErrInvalidIntentionStatus = errors.New("invalid intention status")
	ErrInvalidTransition      = errors.New("intention status transition not allowed")
	ErrIntentionNotApproved   = errors.New("intention is not approved")
)

// Invite errors
var (
	ErrInviteNotFound    = errors.New("invite not found")
	ErrInviteAlreadyUsed = errors.New("invite already used")
	ErrInviteExpired     = errors.New("invite expired")
	ErrInviteTokenTaken  = errors.New("invite token already exists")
	// ErrInviteOrphaned reports an invite whose originating intention no longer exists.
	// It is a data integrity failure, not a problem with the caller's input.
	ErrInviteOrphaned = errors.New("invite has no originating intention")
)

// Member and session errors
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrMemberInactive      = errors.New("member account is inactive")
	ErrInvalidToken        = errors.New("invalid token")
)

// ValidationError reports malformed input with per-field detail.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
