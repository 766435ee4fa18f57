package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tendant/simple-admission/pkg/domain"
)

// RevokedTokensRepository persists the signed-token blacklist.
type RevokedTokensRepository struct {
	db *DB
}

// NewRevokedTokensRepository creates a new revoked tokens repository.
func NewRevokedTokensRepository(db *DB) *RevokedTokensRepository {
	return &RevokedTokensRepository{db: db}
}

// Create records a revoked token and reports whether this call inserted it.
// Revoking the same token twice is a no-op that returns false.
func (r *RevokedTokensRepository) Create(ctx context.Context, t *domain.RevokedToken) (bool, error) {
	query := `
		INSERT INTO revoked_tokens (id, token_hash, subject_id, kind, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (token_hash) DO NOTHING
	`
	conn := r.db.Conn()
	result, err := conn.ExecContext(ctx, conn.Rebind(query),
		t.ID, t.TokenHash, t.SubjectID, string(t.Kind), toMillis(t.ExpiresAt), toMillis(t.RevokedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Exists reports whether the token hash has been revoked.
func (r *RevokedTokensRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	conn := r.db.Conn()
	var found int
	err := conn.QueryRowxContext(ctx,
		conn.Rebind(`SELECT 1 FROM revoked_tokens WHERE token_hash = ?`), tokenHash,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteExpired removes entries for tokens that would no longer verify anyway.
func (r *RevokedTokensRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn := r.db.Conn()
	result, err := conn.ExecContext(ctx,
		conn.Rebind(`DELETE FROM revoked_tokens WHERE expires_at <= ?`), toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
