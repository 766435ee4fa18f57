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

// InvitesRepository handles invite persistence.
type InvitesRepository struct {
	db *DB
}

// NewInvitesRepository creates a new invites repository.
func NewInvitesRepository(db *DB) *InvitesRepository {
	return &InvitesRepository{db: db}
}

const inviteColumns = `id, token, intention_id, used, used_at, expires_at, created_at`

// Create stores a new invite.
func (r *InvitesRepository) Create(ctx context.Context, invite *domain.Invite) error {
	query := `
		INSERT INTO invites (id, token, intention_id, used, used_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	conn := r.db.Conn()
	_, err := conn.ExecContext(ctx, conn.Rebind(query),
		invite.ID, invite.Token, invite.IntentionID, invite.Used,
		toMillisPtr(invite.UsedAt), toMillis(invite.ExpiresAt), toMillis(invite.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrInviteTokenTaken
	}
	return err
}

// GetByToken returns the invite with token regardless of its state.
func (r *InvitesRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	return getInviteByToken(ctx, r.db.Conn(), token)
}

// GetByTokenTx returns the invite with token within a transaction.
func (r *InvitesRepository) GetByTokenTx(ctx context.Context, tx *sqlx.Tx, token string) (*domain.Invite, error) {
	return getInviteByToken(ctx, tx, token)
}

func getInviteByToken(ctx context.Context, q sqlx.ExtContext, token string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE token = ?`
	invite, err := scanInvite(q.QueryRowxContext(ctx, q.Rebind(query), token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// ListByIntention returns every invite issued for an intention, newest first.
func (r *InvitesRepository) ListByIntention(ctx context.Context, intentionID uuid.UUID) ([]*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE intention_id = ? ORDER BY created_at DESC`
	conn := r.db.Conn()
	rows, err := conn.QueryxContext(ctx, conn.Rebind(query), intentionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []*domain.Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

// ClaimTx marks the invite used only if it is currently unused and not
// expired at now. It reports whether the invite was claimed; exactly one of
// any number of concurrent callers sees true.
func (r *InvitesRepository) ClaimTx(ctx context.Context, tx *sqlx.Tx, token string, now time.Time) (bool, error) {
	query := `
		UPDATE invites
		SET used = TRUE, used_at = ?
		WHERE token = ? AND used = FALSE AND expires_at > ?
	`
	ms := toMillis(now)
	result, err := tx.ExecContext(ctx, tx.Rebind(query), ms, token, ms)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkUsed flags the invite as used. Marking an already used invite succeeds
// and keeps the original used_at.
func (r *InvitesRepository) MarkUsed(ctx context.Context, token string, now time.Time) error {
	query := `
		UPDATE invites
		SET used = TRUE, used_at = COALESCE(used_at, ?)
		WHERE token = ?
	`
	conn := r.db.Conn()
	result, err := conn.ExecContext(ctx, conn.Rebind(query), toMillis(now), token)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

func scanInvite(row interface{ Scan(...any) error }) (*domain.Invite, error) {
	var (
		invite               domain.Invite
		usedAt               *int64
		expiresAt, createdAt int64
	)
	if err := row.Scan(
		&invite.ID, &invite.Token, &invite.IntentionID, &invite.Used,
		&usedAt, &expiresAt, &createdAt,
	); err != nil {
		return nil, err
	}
	invite.UsedAt = fromMillisPtr(usedAt)
	invite.ExpiresAt = fromMillis(expiresAt)
	invite.CreatedAt = fromMillis(createdAt)
	return &invite, nil
}
