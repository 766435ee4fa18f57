package intentions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestHandler() *Handler {
	return &Handler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSubmit_RejectsBadBodies(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "invalid json", body: `{invalid}`, wantStatus: http.StatusBadRequest},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"name":"a","admin":true}`, wantStatus: http.StatusBadRequest},
	}

	handler := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/intentions", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Validation should have failed before reaching service")
				}
			}()

			handler.Submit(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestSetStatus_Validation(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "bad id", id: "not-a-uuid", body: `{"status":"approved"}`, wantStatus: http.StatusBadRequest, wantField: "id"},
		{name: "unknown status", id: "6f1c2a2e-3f55-4c1c-9d53-1f8d2b7c1a10", body: `{"status":"maybe"}`, wantStatus: http.StatusBadRequest, wantField: "status"},
		{name: "missing status", id: "6f1c2a2e-3f55-4c1c-9d53-1f8d2b7c1a10", body: `{}`, wantStatus: http.StatusBadRequest, wantField: "status"},
	}

	handler := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/v1/admin/intentions/"+tt.id+"/status", bytes.NewBufferString(tt.body))
			req = withID(req, tt.id)
			rec := httptest.NewRecorder()

			handler.SetStatus(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				Fields map[string]string `json:"fields"`
			}
			json.NewDecoder(rec.Body).Decode(&body)
			if body.Fields[tt.wantField] == "" {
				t.Errorf("fields = %v, want entry for %q", body.Fields, tt.wantField)
			}
		})
	}
}

func TestList_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "bad status", query: "?status=archived"},
		{name: "bad limit", query: "?limit=-3"},
		{name: "non numeric limit", query: "?limit=ten"},
	}

	handler := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/intentions"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.List(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", defaultListLimit, false},
		{"10", 10, false},
		{"100000", maxListLimit, false},
		{"0", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
