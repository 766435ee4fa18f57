package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-admission/internal/http/features/common"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/pkg/auth"
	"github.com/tendant/simple-admission/pkg/domain"
)

// Handler handles session endpoints.
type Handler struct {
	logger         *slog.Logger
	sessionService *auth.SessionService
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessionService *auth.SessionService, cookieSecure bool) *Handler {
	return &Handler{
		logger:         logger,
		sessionService: sessionService,
		cookieConfig:   httputil.DefaultCookieConfig(cookieSecure),
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email string `json:"email"`
}

// RefreshRequest represents a token refresh request (for mobile clients).
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest represents a logout request (for mobile clients).
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents a token response.
type TokenResponse struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	TokenType    string                 `json:"token_type"`
	ExpiresIn    int                    `json:"expires_in"`
	Member       *common.MemberResponse `json:"member,omitempty"`
}

// Login issues a session for an admitted member.
// POST /v1/auth/login
//
// Tokens are always returned in the body. Web clients also get HttpOnly cookies.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	if req.Email == "" {
		httputil.ValidationError(w, domain.NewValidationError("email", "is required"))
		return
	}

	tokens, member, err := h.sessionService.Login(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			// Same answer as a bad token so membership cannot be enumerated.
			httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		common.WriteError(w, r, h.logger, err)
		return
	}

	m := common.NewMemberResponse(member)
	h.writeTokenResponse(w, r, tokens, &m)
}

// Refresh rotates a refresh token into a new session.
// POST /v1/auth/refresh
//
// For web clients: reads the refresh cookie, falling back to the body.
// For mobile clients: reads the token from the body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string

	if httputil.IsMobileClient(r) {
		var req RefreshRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.RefreshToken == "" {
			httputil.Error(w, http.StatusBadRequest, "refresh_token is required")
			return
		}
		refreshToken = req.RefreshToken
	} else {
		var ok bool
		refreshToken, ok = httputil.RefreshTokenFromCookie(r)
		if !ok && r.ContentLength != 0 {
			var req RefreshRequest
			if err := httputil.DecodeJSON(r, &req); err == nil {
				refreshToken = req.RefreshToken
			}
		}
		if refreshToken == "" {
			httputil.Error(w, http.StatusUnauthorized, "refresh token not found")
			return
		}
	}

	tokens, err := h.sessionService.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) ||
			errors.Is(err, domain.ErrMemberNotFound) ||
			errors.Is(err, domain.ErrMemberInactive) {
			// Clear cookies on invalid token for web clients
			if !httputil.IsMobileClient(r) {
				httputil.ClearAuthCookies(w, h.cookieConfig)
			}
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		common.WriteError(w, r, h.logger, err)
		return
	}

	h.writeTokenResponse(w, r, tokens, nil)
}

// Logout revokes the caller's tokens.
// POST /v1/auth/logout
//
// Always answers 204. The access token comes from the Authorization header or
// cookie; the refresh token from the cookie or, for mobile, the body.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := httputil.AccessToken(r)

	var refreshToken string
	if httputil.IsMobileClient(r) {
		var req LogoutRequest
		if r.ContentLength != 0 {
			// Logout must not fail, so a malformed body is ignored.
			_ = httputil.DecodeJSON(r, &req)
		}
		refreshToken = req.RefreshToken
	} else {
		refreshToken, _ = httputil.RefreshTokenFromCookie(r)
	}

	if accessToken != "" || refreshToken != "" {
		h.sessionService.Logout(r.Context(), accessToken, refreshToken)
	}

	// Clear cookies for web clients
	if !httputil.IsMobileClient(r) {
		httputil.ClearAuthCookies(w, h.cookieConfig)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTokenResponse(w http.ResponseWriter, r *http.Request, tokens *domain.TokenPair, member *common.MemberResponse) {
	if !httputil.IsMobileClient(r) {
		httputil.SetAuthCookies(
			w,
			tokens.AccessToken,
			tokens.RefreshToken,
			h.sessionService.AccessTokenTTL(),
			h.sessionService.RefreshTokenTTL(),
			h.cookieConfig,
		)
	}

	httputil.JSON(w, http.StatusOK, TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		Member:       member,
	})
}
