package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-admission/pkg/domain"
)

// IntentionsRepository handles intention persistence.
type IntentionsRepository struct {
	db *DB
}

// NewIntentionsRepository creates a new intentions repository.
func NewIntentionsRepository(db *DB) *IntentionsRepository {
	return &IntentionsRepository{db: db}
}

const intentionColumns = `id, name, email, company, reason, status, created_at, updated_at`

// Create stores a new intention.
func (r *IntentionsRepository) Create(ctx context.Context, intention *domain.Intention) error {
	query := `
		INSERT INTO intentions (id, name, email, company, reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	conn := r.db.Conn()
	_, err := conn.ExecContext(ctx, conn.Rebind(query),
		intention.ID, intention.Name, intention.Email, intention.Company, intention.Reason,
		string(intention.Status), toMillis(intention.CreatedAt), toMillis(intention.UpdatedAt),
	)
	return err
}

// GetByID retrieves an intention by ID.
func (r *IntentionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Intention, error) {
	return getIntention(ctx, r.db.Conn(), id)
}

// GetByIDTx retrieves an intention by ID within a transaction.
func (r *IntentionsRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Intention, error) {
	return getIntention(ctx, tx, id)
}

func getIntention(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*domain.Intention, error) {
	query := `SELECT ` + intentionColumns + ` FROM intentions WHERE id = ?`
	intention, err := scanIntention(q.QueryRowxContext(ctx, q.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIntentionNotFound
	}
	if err != nil {
		return nil, err
	}
	return intention, nil
}

// List returns intentions newest first, optionally filtered by status.
func (r *IntentionsRepository) List(ctx context.Context, status *domain.IntentionStatus, limit int) ([]*domain.Intention, error) {
	query := `SELECT ` + intentionColumns + ` FROM intentions`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	conn := r.db.Conn()
	rows, err := conn.QueryxContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intentions []*domain.Intention
	for rows.Next() {
		intention, err := scanIntention(rows)
		if err != nil {
			return nil, err
		}
		intentions = append(intentions, intention)
	}
	return intentions, rows.Err()
}

// UpdateStatus sets the status to next only when the current status is one
// of from. It reports whether a row matched; a false result means the
// intention is missing or in a status outside from.
func (r *IntentionsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.IntentionStatus, from []domain.IntentionStatus, now time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	current := make([]string, len(from))
	for i, s := range from {
		current[i] = string(s)
	}

	query, args, err := sqlx.In(`
		UPDATE intentions
		SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?)
	`, string(next), toMillis(now), id, current)
	if err != nil {
		return false, err
	}

	conn := r.db.Conn()
	result, err := conn.ExecContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func scanIntention(row interface{ Scan(...any) error }) (*domain.Intention, error) {
	var (
		intention            domain.Intention
		status               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&intention.ID, &intention.Name, &intention.Email, &intention.Company,
		&intention.Reason, &status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	intention.Status = domain.IntentionStatus(status)
	intention.CreatedAt = fromMillis(createdAt)
	intention.UpdatedAt = fromMillis(updatedAt)
	return &intention, nil
}
