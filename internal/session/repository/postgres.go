package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/backend/internal/session/domain"
)

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `token_id, user_id, tenant_id, role, issued_at, expires_at, last_active_at,
	device, browser, os, user_agent, ip_hash, is_revoked, revoked_at, revoked_reason, revoked_by, created_at`

// GetByTokenID returns the session for the token id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE token_id = $1", tokenID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUserAndTenant returns all sessions for the given user and tenant,
// revoked ones included, newest first.
func (r *PostgresRepository) ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = $1 AND tenant_id = $2 ORDER BY created_at DESC",
		userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have TokenID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token_id, user_id, tenant_id, role, issued_at, expires_at, last_active_at,
			device, browser, os, user_agent, ip_hash, is_revoked, revoked_at, revoked_reason, revoked_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		s.TokenID, s.UserID, s.TenantID, s.Role, s.IssuedAt, s.ExpiresAt, timeToNullTime(s.LastActiveAt),
		s.Device.Device, s.Device.Browser, s.Device.OS, s.Device.UserAgent, s.IPHash,
		s.IsRevoked, timeToNullTime(s.RevokedAt), s.RevokedReason, s.RevokedBy, s.CreatedAt)
	return err
}

// Revoke conditionally flips the session to revoked. The WHERE clause makes
// the transition atomic: a concurrent second revoke matches no row.
func (r *PostgresRepository) Revoke(ctx context.Context, tokenID, tenantID, reason, revokedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_revoked = TRUE, revoked_at = $1, revoked_reason = $2, revoked_by = $3
		 WHERE token_id = $4 AND tenant_id = $5 AND is_revoked = FALSE`,
		at, reason, revokedBy, tokenID, tenantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeAllByUser revokes every non-revoked session for the user within the
// tenant, optionally keeping one token id alive, and returns the count affected.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID, tenantID, reason, revokedBy, exceptTokenID string, at time.Time) (int64, error) {
	q := `UPDATE sessions SET is_revoked = TRUE, revoked_at = $1, revoked_reason = $2, revoked_by = $3
	      WHERE user_id = $4 AND tenant_id = $5 AND is_revoked = FALSE`
	args := []any{at, reason, revokedBy, userID, tenantID}
	if exceptTokenID != "" {
		args = append(args, exceptTokenID)
		q += " AND token_id <> $6"
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Touch sets the session's last-active timestamp.
func (r *PostgresRepository) Touch(ctx context.Context, tokenID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_active_at = $1 WHERE token_id = $2", at, tokenID)
	return err
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s          domain.Session
		lastActive sql.NullTime
		revokedAt  sql.NullTime
	)
	err := row.Scan(&s.TokenID, &s.UserID, &s.TenantID, &s.Role, &s.IssuedAt, &s.ExpiresAt, &lastActive,
		&s.Device.Device, &s.Device.Browser, &s.Device.OS, &s.Device.UserAgent, &s.IPHash,
		&s.IsRevoked, &revokedAt, &s.RevokedReason, &s.RevokedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		s.LastActiveAt = &lastActive.Time
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return &s, nil
}
