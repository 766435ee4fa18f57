package common

import (
	"time"

	"github.com/tendant/simple-admission/pkg/domain"
)

// IntentionResponse is the JSON form of an intention.
type IntentionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewIntentionResponse converts an intention.
func NewIntentionResponse(i *domain.Intention) IntentionResponse {
	return IntentionResponse{
		ID:        i.ID.String(),
		Name:      i.Name,
		Email:     i.Email,
		Company:   i.Company,
		Reason:    i.Reason,
		Status:    string(i.Status),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// InviteResponse is the operator view of an invite, token included.
type InviteResponse struct {
	ID          string     `json:"id"`
	Token       string     `json:"token"`
	IntentionID string     `json:"intention_id"`
	Used        bool       `json:"used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewInviteResponse converts an invite.
func NewInviteResponse(i *domain.Invite) InviteResponse {
	return InviteResponse{
		ID:          i.ID.String(),
		Token:       i.Token,
		IntentionID: i.IntentionID.String(),
		Used:        i.Used,
		UsedAt:      i.UsedAt,
		ExpiresAt:   i.ExpiresAt,
		CreatedAt:   i.CreatedAt,
	}
}

// MemberResponse is the JSON form of a member.
type MemberResponse struct {
	ID          string    `json:"id"`
	IntentionID *string   `json:"intention_id,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Company     string    `json:"company"`
	Phone       *string   `json:"phone,omitempty"`
	JobTitle    *string   `json:"job_title,omitempty"`
	Website     *string   `json:"website,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMemberResponse converts a member.
func NewMemberResponse(m *domain.Member) MemberResponse {
	resp := MemberResponse{
		ID:        m.ID.String(),
		Name:      m.Name,
		Email:     m.Email,
		Company:   m.Company,
		Phone:     m.Phone,
		JobTitle:  m.JobTitle,
		Website:   m.Website,
		Bio:       m.Bio,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
	if m.IntentionID != nil {
		id := m.IntentionID.String()
		resp.IntentionID = &id
	}
	return resp
}
