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

// MembersRepository handles member persistence.
type MembersRepository struct {
	db *DB
}

// NewMembersRepository creates a new members repository.
func NewMembersRepository(db *DB) *MembersRepository {
	return &MembersRepository{db: db}
}

const memberColumns = `id, intention_id, name, email, company, phone, job_title, website, bio, active, created_at, updated_at`

const insertMember = `
	INSERT INTO members (id, intention_id, name, email, company, phone, job_title, website, bio, active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create stores a new member.
func (r *MembersRepository) Create(ctx context.Context, member *domain.Member) error {
	return createMember(ctx, r.db.Conn(), member)
}

// CreateTx stores a new member within a transaction.
func (r *MembersRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, member *domain.Member) error {
	return createMember(ctx, tx, member)
}

func createMember(ctx context.Context, q sqlx.ExtContext, m *domain.Member) error {
	_, err := q.ExecContext(ctx, q.Rebind(insertMember),
		m.ID, m.IntentionID, m.Name, m.Email, m.Company,
		m.Phone, m.JobTitle, m.Website, m.Bio, m.Active,
		toMillis(m.CreatedAt), toMillis(m.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrMemberAlreadyExists
	}
	return err
}

// GetByID retrieves a member by ID.
func (r *MembersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
}

// GetByEmail retrieves a member by email.
func (r *MembersRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`, email)
}

func (r *MembersRepository) getOne(ctx context.Context, query string, arg any) (*domain.Member, error) {
	conn := r.db.Conn()
	member, err := scanMember(conn.QueryRowxContext(ctx, conn.Rebind(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

// List returns members newest first.
func (r *MembersRepository) List(ctx context.Context, limit int) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY created_at DESC`
	var args []any
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

	var members []*domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// SetActive enables or disables a member.
func (r *MembersRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	conn := r.db.Conn()
	result, err := conn.ExecContext(ctx,
		conn.Rebind(`UPDATE members SET active = ?, updated_at = ? WHERE id = ?`),
		active, toMillis(now), id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func scanMember(row interface{ Scan(...any) error }) (*domain.Member, error) {
	var (
		m                    domain.Member
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&m.ID, &m.IntentionID, &m.Name, &m.Email, &m.Company,
		&m.Phone, &m.JobTitle, &m.Website, &m.Bio, &m.Active,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return &m, nil
}
