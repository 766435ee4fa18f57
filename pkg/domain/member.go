package domain

import (
	"time"

	"github.com/google/uuid"
)

// Member is an admitted participant created by redeeming an invite.
type Member struct {
	ID          uuid.UUID
	IntentionID *uuid.UUID
	Name        string
	Email       string
	Company     string
	Phone       *string
	JobTitle    *string
	Website     *string
	Bio         *string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile holds the optional details a member supplies when redeeming an invite.
type Profile struct {
	Phone    *string
	JobTitle *string
	Website  *string
	Bio      *string
}
