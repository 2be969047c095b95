// Package service combines the token provider and the session store into the
// session-lifecycle contract: issued tokens are backed by rows, and a row can
// outlive its token's validity (revocation) or be enumerated and revoked in bulk.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"classtrack/backend/internal/audit"
	auditdomain "classtrack/backend/internal/audit/domain"
	"classtrack/backend/internal/security"
	"classtrack/backend/internal/session/domain"
)

// SessionRepo is the minimal session repository needed by the service.
type SessionRepo interface {
	GetByTokenID(ctx context.Context, tokenID string) (*domain.Session, error)
	ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Revoke(ctx context.Context, tokenID, tenantID, reason, revokedBy string, at time.Time) (bool, error)
	RevokeAllByUser(ctx context.Context, userID, tenantID, reason, revokedBy, exceptTokenID string, at time.Time) (int64, error)
	Touch(ctx context.Context, tokenID string, at time.Time) error
}

// Service issues tokens with matching session rows and resolves tokens back to
// live sessions.
type Service struct {
	repo     SessionRepo
	tokens   *security.TokenProvider
	auditLog *audit.Logger
	ipPepper string
	log      *zap.SugaredLogger
}

// NewService returns a session Service. auditLog may be nil (no auth events recorded).
func NewService(repo SessionRepo, tokens *security.TokenProvider, auditLog *audit.Logger, ipPepper string, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, tokens: tokens, auditLog: auditLog, ipPepper: ipPepper, log: log}
}

// CreateToken issues a signed access token for the given identity and persists
// the matching session row keyed by the token's jti. The client IP is stored
// only as an HMAC digest.
func (s *Service) CreateToken(ctx context.Context, userID, tenantID, role string, ttl time.Duration, meta domain.DeviceMeta, clientIP string) (string, *domain.Session, error) {
	token, jti, issuedAt, expiresAt, err := s.tokens.Issue(userID, tenantID, role, ttl)
	if err != nil {
		return "", nil, err
	}
	sess := &domain.Session{
		TokenID:   jti,
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Device:    meta,
		IPHash:    security.HashIP(clientIP, s.ipPepper),
		CreatedAt: issuedAt,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", nil, err
	}
	if s.auditLog != nil {
		s.auditLog.AuthEvent(ctx, tenantID, auditdomain.ActionLogin,
			auditdomain.Actor{ID: userID, Role: role},
			map[string]any{"token_id": jti, "device": meta.Device})
	}
	return token, sess, nil
}

// VerifyToken validates signature and expiry only and returns the claims, or
// nil for any failure. Signature validity alone is insufficient to trust a
// token: callers must also check the session row for revocation, which
// ExtractSession does.
func (s *Service) VerifyToken(token string) *security.Claims {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}
	return claims
}

// ExtractSession resolves a token to its verified claims and live session row.
// It returns (nil, nil) on any failure: bad signature, expired token, unknown
// token id, revoked or expired session, or a tenant/user mismatch between the
// claims and the row. The failure modes are deliberately indistinguishable so
// call sites (and ultimately clients) cannot probe which one occurred.
func (s *Service) ExtractSession(ctx context.Context, token string) (*security.Claims, *domain.Session) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil
	}
	sess, err := s.repo.GetByTokenID(ctx, claims.TokenID())
	if err != nil || sess == nil {
		return nil, nil
	}
	if !sess.Active(time.Now().UTC()) {
		return nil, nil
	}
	if sess.TenantID != claims.TenantID || sess.UserID != claims.UserID() {
		return nil, nil
	}
	return claims, sess
}

// RevokeSession marks the session revoked. Idempotent: returns false when the
// session does not exist within the tenant or was already revoked, true when
// this call performed the transition.
func (s *Service) RevokeSession(ctx context.Context, tokenID, tenantID, reason, revokedBy string) (bool, error) {
	ok, err := s.repo.Revoke(ctx, tokenID, tenantID, reason, revokedBy, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if ok && s.auditLog != nil {
		s.auditLog.AuthEvent(ctx, tenantID, auditdomain.ActionSessionRevoked,
			auditdomain.Actor{ID: revokedBy},
			map[string]any{"token_id": tokenID, "reason": reason})
	}
	return ok, nil
}

// RevokeAllUserSessions revokes every non-revoked session of the user within
// the tenant, optionally excluding the caller's own (exceptTokenID), and
// returns the count affected. A second call affects zero sessions.
func (s *Service) RevokeAllUserSessions(ctx context.Context, userID, tenantID, reason, revokedBy, exceptTokenID string) (int64, error) {
	n, err := s.repo.RevokeAllByUser(ctx, userID, tenantID, reason, revokedBy, exceptTokenID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 && s.auditLog != nil {
		s.auditLog.AuthEvent(ctx, tenantID, auditdomain.ActionAllSessionsRevoked,
			auditdomain.Actor{ID: revokedBy},
			map[string]any{"user_id": userID, "reason": reason, "count": n})
	}
	return n, nil
}

// ListUserSessions returns every session of the user within the tenant,
// revoked ones included, for the device-management surface.
func (s *Service) ListUserSessions(ctx context.Context, userID, tenantID string) ([]*domain.Session, error) {
	return s.repo.ListByUserAndTenant(ctx, userID, tenantID)
}

// Touch records activity on the session. Best-effort: errors are logged only.
func (s *Service) Touch(ctx context.Context, tokenID string) {
	if err := s.repo.Touch(ctx, tokenID, time.Now().UTC()); err != nil {
		s.log.Debugw("session touch failed", "token_id", tokenID, "error", err)
	}
}
