package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tendant/simple-admission/internal/httputil"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the operator API key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey creates middleware that checks X-Admin-Key against a bcrypt hash.
// With an empty hash every request is refused.
func AdminKey(hash string, logger *slog.Logger) func(http.Handler) http.Handler {
	hashed := []byte(hash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(AdminKeyHeader)
			if len(hashed) == 0 || key == "" {
				httputil.Error(w, http.StatusUnauthorized, "admin key required")
				return
			}
			if err := bcrypt.CompareHashAndPassword(hashed, []byte(key)); err != nil {
				logger.Warn("admin key rejected", "ip", r.RemoteAddr, "path", r.URL.Path)
				httputil.Error(w, http.StatusUnauthorized, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
