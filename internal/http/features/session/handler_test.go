package session

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHandler() *Handler {
	return &Handler{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionService: nil,
	}
}

func TestLoginRequest_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation failed",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation failed",
		},
		{
			name:           "password field rejected",
			body:           `{"email":"a@example.com","password":"x"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation failed",
		},
	}

	handler := newTestHandler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Validation should have failed before reaching service")
				}
			}()

			handler.Login(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]any
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestRefreshRequest_Validation_Mobile(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "refresh_token is required",
		},
		{
			name:           "empty refresh_token",
			body:           `{"refresh_token": ""}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "refresh_token is required",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	handler := newTestHandler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Client-Type", "mobile") // Mobile client sends tokens in body
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Validation should have failed before reaching service")
				}
			}()

			handler.Refresh(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestRefreshRequest_WebClient_NoCookie(t *testing.T) {
	handler := newTestHandler()

	// Web client without cookie or body should get 401
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["error"] != "refresh token not found" {
		t.Errorf("Error = %q, want %q", response["error"], "refresh token not found")
	}
}

func TestLogout_NoTokens(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		mobile bool
	}{
		{name: "mobile empty body", body: `{}`, mobile: true},
		{name: "mobile empty refresh_token", body: `{"refresh_token": ""}`, mobile: true},
		{name: "mobile invalid json", body: `{invalid}`, mobile: true},
		{name: "web without cookie"},
	}

	handler := newTestHandler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", bytes.NewBufferString(tt.body))
			if tt.mobile {
				req.Header.Set("X-Client-Type", "mobile")
			}
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Logout without tokens should not reach the service")
				}
			}()

			handler.Logout(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusNoContent)
			}
			cleared := len(rec.Result().Cookies()) > 0
			if cleared == tt.mobile {
				t.Errorf("cookies cleared = %v, want %v", cleared, !tt.mobile)
			}
		})
	}
}
