// Package domain holds the session row backing an issued JWT.
package domain

import "time"

// DeviceMeta describes the client that opened the session.
type DeviceMeta struct {
	Device    string
	Browser   string
	OS        string
	UserAgent string
}

// Session is the persisted record keyed by the token's jti. It makes early
// revocation possible despite JWTs being stateless: the token proves identity,
// the row decides whether that proof is still honored. Rows become inert on
// expiry or revocation; they are never deleted.
type Session struct {
	TokenID      string
	UserID       string
	TenantID     string
	Role         string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	LastActiveAt *time.Time
	Device       DeviceMeta
	IPHash       string // HMAC digest; raw addresses are never stored
	IsRevoked    bool
	RevokedAt    *time.Time
	RevokedReason string
	RevokedBy    string
	CreatedAt    time.Time
}

// Active reports whether the session may still back a token at the given time.
func (s *Session) Active(now time.Time) bool {
	return !s.IsRevoked && now.Before(s.ExpiresAt)
}
