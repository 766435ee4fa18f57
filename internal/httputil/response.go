package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tendant/simple-admission/pkg/domain"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSON writes v as a JSON response with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": message} with status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ValidationError writes a 400 carrying per-field detail.
func ValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
// Errors are returned as *domain.ValidationError or *BodyTooLargeError so
// handlers can hand them to WriteDecodeError.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &BodyTooLargeError{Limit: maxErr.Limit}
		}
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "is required")
		}
		var unknown string
		if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
			unknown = strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
			return domain.NewValidationError(unknown, "is not allowed")
		}
		return domain.NewValidationError("body", "is not valid JSON")
	}
	return nil
}

// BodyTooLargeError reports a request body over the configured limit.
type BodyTooLargeError struct {
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// WriteDecodeError answers a DecodeJSON failure.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *BodyTooLargeError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		ValidationError(w, verr)
		return
	}
	Error(w, http.StatusBadRequest, "invalid request body")
}
