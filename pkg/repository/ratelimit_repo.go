package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-admission/pkg/domain"
)

// RateLimitRepository persists fixed-window counters shared by every instance.
type RateLimitRepository struct {
	db *DB
}

// NewRateLimitRepository creates a new rate limit repository.
func NewRateLimitRepository(db *DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Hit counts one request against key. A missing entry, or one whose window
// ended at or before now, restarts at 1 with a window ending at now+window;
// a live entry is incremented. The whole step is a single statement so
// concurrent callers observe distinct counts.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	query := `
		INSERT INTO rate_limit_entries (id, limit_key, count, reset_at, created_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (limit_key) DO UPDATE SET
			count = CASE WHEN rate_limit_entries.reset_at > excluded.created_at
				THEN rate_limit_entries.count + 1 ELSE 1 END,
			reset_at = CASE WHEN rate_limit_entries.reset_at > excluded.created_at
				THEN rate_limit_entries.reset_at ELSE excluded.reset_at END,
			created_at = CASE WHEN rate_limit_entries.reset_at > excluded.created_at
				THEN rate_limit_entries.created_at ELSE excluded.created_at END
		RETURNING count, reset_at
	`
	conn := r.db.Conn()
	var (
		count   int
		resetAt int64
	)
	err := conn.QueryRowxContext(ctx, conn.Rebind(query),
		uuid.New(), key, toMillis(now.Add(window)), toMillis(now),
	).Scan(&count, &resetAt)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, fromMillis(resetAt), nil
}

// Get returns the stored entry for key, or sql.ErrNoRows.
func (r *RateLimitRepository) Get(ctx context.Context, key string) (*domain.RateLimitEntry, error) {
	query := `
		SELECT id, limit_key, count, reset_at, created_at
		FROM rate_limit_entries
		WHERE limit_key = ?
	`
	conn := r.db.Conn()
	var (
		entry              domain.RateLimitEntry
		resetAt, createdAt int64
	)
	err := conn.QueryRowxContext(ctx, conn.Rebind(query), key).Scan(
		&entry.ID, &entry.Key, &entry.Count, &resetAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	entry.ResetAt = fromMillis(resetAt)
	entry.CreatedAt = fromMillis(createdAt)
	return &entry, nil
}

// DeleteExpired removes entries whose window ended at or before now.
func (r *RateLimitRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn := r.db.Conn()
	result, err := conn.ExecContext(ctx,
		conn.Rebind(`DELETE FROM rate_limit_entries WHERE reset_at <= ?`), toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
