// Package domain holds the append-only audit log entry.
package domain

import "time"

// Actor identifies who performed the audited action.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// FieldChange is one entry of an ordered field-level diff supplied by the
// caller on updates.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// Entry is one audit log record. Entries are append-only; nothing updates or
// deletes them.
type Entry struct {
	ID         string
	TenantID   string
	Module     string
	Action     string
	EntityID   string
	Actor      Actor
	IP         string
	UserAgent  string
	Changes    []FieldChange  // ordered diff for updates
	Snapshot   map[string]any // full document for creates/deletes
	Metadata   map[string]any // free-form context for auth/security events
	OccurredAt time.Time
}

// Entity mutation actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Auth and security actions.
const (
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionSessionRevoked     = "session_revoked"
	ActionAllSessionsRevoked = "all_sessions_revoked"
)
