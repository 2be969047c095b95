package repository

import (
	"context"
	"time"

	"classtrack/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
//
// Revoke and RevokeAllByUser are conditional state transitions: only rows with
// is_revoked=false flip, so concurrent revoke attempts are safe and the second
// one reports nothing affected.
type Repository interface {
	GetByTokenID(ctx context.Context, tokenID string) (*domain.Session, error)
	ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Revoke flips the session to revoked with the given reason and actor.
	// Returns false when the session does not exist or was already revoked.
	Revoke(ctx context.Context, tokenID, tenantID, reason, revokedBy string, at time.Time) (bool, error)
	// RevokeAllByUser revokes every non-revoked session of the user within the
	// tenant, optionally excluding one token id, and returns the count affected.
	RevokeAllByUser(ctx context.Context, userID, tenantID, reason, revokedBy, exceptTokenID string, at time.Time) (int64, error)
	// Touch updates the session's last-active timestamp.
	Touch(ctx context.Context, tokenID string, at time.Time) error
}
