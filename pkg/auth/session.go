package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/internal/logging"
	"github.com/tendant/simple-admission/pkg/domain"
	"github.com/tendant/simple-admission/pkg/validate"
)

// MemberStore reads members for session issuance.
type MemberStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
}

// SessionService handles login, refresh and logout for members.
type SessionService struct {
	issuer  *TokenIssuer
	members MemberStore
	logger  *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(issuer *TokenIssuer, members MemberStore, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{issuer: issuer, members: members, logger: logger}
}

// Issuer returns the underlying token issuer.
func (s *SessionService) Issuer() *TokenIssuer {
	return s.issuer
}

// AccessTokenTTL returns the access token TTL.
func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.issuer.AccessTokenTTL()
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *SessionService) RefreshTokenTTL() time.Duration {
	return s.issuer.RefreshTokenTTL()
}

// Login issues a token pair for the active member with email.
func (s *SessionService) Login(ctx context.Context, email string) (*domain.TokenPair, *domain.Member, error) {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return nil, nil, domain.NewValidationError("email", "is required")
	}

	member, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if !member.Active {
		return nil, nil, domain.ErrMemberInactive
	}

	tokens, err := s.issuePair(member)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("member logged in", "member_id", member.ID)
	return tokens, member, nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// refresh token is revoked before the new pair is issued; the revocation
// insert is the claim, so concurrent replays of one token yield one pair.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims := s.issuer.Parse(refreshToken, domain.TokenKindRefresh)
	if claims == nil {
		return nil, domain.ErrInvalidToken
	}

	memberID, _ := claims.SubjectID()
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !member.Active {
		return nil, domain.ErrMemberInactive
	}

	claimed, err := s.issuer.Blacklist(ctx, refreshToken, memberID, domain.TokenKindRefresh, claims.ExpiresAt.Time)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !claimed {
		s.logger.Warn("refresh token replayed", "member_id", memberID)
		return nil, domain.ErrInvalidToken
	}

	return s.issuePair(member)
}

// Logout revokes the given tokens until they would have expired. Tokens that
// do not verify are ignored; logout itself never fails.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) {
	s.revoke(ctx, accessToken, domain.TokenKindAccess)
	s.revoke(ctx, refreshToken, domain.TokenKindRefresh)
}

func (s *SessionService) revoke(ctx context.Context, token string, kind domain.TokenKind) {
	claims := s.issuer.Parse(token, kind)
	if claims == nil {
		return
	}
	memberID, _ := claims.SubjectID()
	if _, err := s.issuer.Blacklist(ctx, token, memberID, kind, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("failed to revoke token", "kind", kind, "member_id", memberID, logging.Err(err))
		return
	}
	s.logger.Info("token revoked", "kind", kind, "member_id", memberID)
}

// Authenticate returns the claims of a valid, unrevoked access token.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	claims := s.issuer.Parse(accessToken, domain.TokenKindAccess)
	if claims == nil {
		return nil, domain.ErrInvalidToken
	}
	revoked, err := s.issuer.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("check access token: %w", err)
	}
	if revoked {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func (s *SessionService) issuePair(member *domain.Member) (*domain.TokenPair, error) {
	id := Identity{SubjectID: member.ID, Email: member.Email, Name: member.Name}

	access, accessExpiry, err := s.issuer.IssueAccess(id)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.issuer.IssueRefresh(id)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.issuer.AccessTokenTTL().Seconds()),
		ExpiresAt:    accessExpiry,
	}, nil
}
