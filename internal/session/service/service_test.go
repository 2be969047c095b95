package service

import (
	"context"
	"testing"
	"time"

	"classtrack/backend/internal/logger"
	"classtrack/backend/internal/security"
	"classtrack/backend/internal/session/domain"
	"classtrack/backend/internal/session/repository"
)

func newTestService(t *testing.T) (*Service, *repository.MemoryRepository) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	repo := repository.NewMemoryRepository()
	return NewService(repo, tokens, nil, "test-pepper", logger.New("error")), repo
}

func TestCreateTokenPersistsSession(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	token, sess, err := svc.CreateToken(ctx, "user-1", "tenant-a", "teacher", time.Hour,
		domain.DeviceMeta{Device: "desktop", Browser: "firefox"}, "203.0.113.7")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
	stored, err := repo.GetByTokenID(ctx, sess.TokenID)
	if err != nil || stored == nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.TenantID != "tenant-a" || stored.UserID != "user-1" {
		t.Fatalf("session identity = (%s, %s)", stored.TenantID, stored.UserID)
	}
	if stored.IPHash == "" || stored.IPHash == "203.0.113.7" {
		t.Fatalf("client IP must be stored as a digest, got %q", stored.IPHash)
	}
}

func TestVerifyAloneVsExtractSessionAfterRevoke(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, sess, err := svc.CreateToken(ctx, "user-1", "tenant-a", "admin", time.Hour, domain.DeviceMeta{}, "")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	ok, err := svc.RevokeSession(ctx, sess.TokenID, "tenant-a", "manual", "user-1")
	if err != nil || !ok {
		t.Fatalf("RevokeSession = (%v, %v), want (true, nil)", ok, err)
	}

	// Signature and expiry are still fine.
	if claims := svc.VerifyToken(token); claims == nil {
		t.Fatal("VerifyToken should still accept a revoked session's token")
	}
	// The combined contract must not.
	if c, s := svc.ExtractSession(ctx, token); c != nil || s != nil {
		t.Fatal("ExtractSession must reject a revoked session")
	}
}

func TestExtractSessionFailureModesIndistinguishable(t *testing.T) {
	svc, repo := newTestService(t)
	other, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	ctx := context.Background()

	foreignToken, _, _, _, err := other.Issue("user-1", "tenant-a", "teacher", time.Hour)
	if err != nil {
		t.Fatalf("foreign issue: %v", err)
	}

	// Token verifies but no row exists.
	orphanToken, _, _, _, err := svc.tokens.Issue("user-2", "tenant-a", "teacher", time.Hour)
	if err != nil {
		t.Fatalf("orphan issue: %v", err)
	}

	// Valid token whose stored row belongs to another tenant.
	driftToken, jti, issuedAt, expiresAt, err := svc.tokens.Issue("user-3", "tenant-a", "teacher", time.Hour)
	if err != nil {
		t.Fatalf("drift issue: %v", err)
	}
	if err := repo.Create(ctx, &domain.Session{
		TokenID: jti, UserID: "user-3", TenantID: "tenant-b", Role: "teacher",
		IssuedAt: issuedAt, ExpiresAt: expiresAt, CreatedAt: issuedAt,
	}); err != nil {
		t.Fatalf("create drifted session: %v", err)
	}

	for name, tok := range map[string]string{
		"garbage":         "not.a.jwt",
		"wrong key":       foreignToken,
		"no session row":  orphanToken,
		"tenant mismatch": driftToken,
	} {
		c, s := svc.ExtractSession(ctx, tok)
		if c != nil || s != nil {
			t.Errorf("%s: ExtractSession = (%v, %v), want (nil, nil)", name, c, s)
		}
	}
}

func TestRevokeSessionIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, sess, err := svc.CreateToken(ctx, "user-1", "tenant-a", "teacher", time.Hour, domain.DeviceMeta{}, "")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if ok, _ := svc.RevokeSession(ctx, sess.TokenID, "tenant-a", "manual", "admin-1"); !ok {
		t.Fatal("first revoke should report true")
	}
	if ok, _ := svc.RevokeSession(ctx, sess.TokenID, "tenant-a", "manual", "admin-1"); ok {
		t.Fatal("second revoke should report false")
	}
	// Wrong tenant never matches.
	if ok, _ := svc.RevokeSession(ctx, sess.TokenID, "tenant-b", "manual", "admin-1"); ok {
		t.Fatal("revoke across tenants should report false")
	}
}

func TestRevokeAllUserSessionsExceptCurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var keep string
	for i := 0; i < 3; i++ {
		_, sess, err := svc.CreateToken(ctx, "user-1", "tenant-a", "teacher", time.Hour, domain.DeviceMeta{}, "")
		if err != nil {
			t.Fatalf("CreateToken: %v", err)
		}
		keep = sess.TokenID
	}
	// Other user and other tenant must be untouched.
	if _, _, err := svc.CreateToken(ctx, "user-2", "tenant-a", "teacher", time.Hour, domain.DeviceMeta{}, ""); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if _, _, err := svc.CreateToken(ctx, "user-1", "tenant-b", "teacher", time.Hour, domain.DeviceMeta{}, ""); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	n, err := svc.RevokeAllUserSessions(ctx, "user-1", "tenant-a", "password_change", "user-1", keep)
	if err != nil {
		t.Fatalf("RevokeAllUserSessions: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked %d sessions, want 2", n)
	}

	sessions, err := svc.ListUserSessions(ctx, "user-1", "tenant-a")
	if err != nil {
		t.Fatalf("ListUserSessions: %v", err)
	}
	now := time.Now().UTC()
	for _, s := range sessions {
		if s.TokenID == keep && !s.Active(now) {
			t.Fatal("excluded session must stay active")
		}
		if s.TokenID != keep && s.Active(now) {
			t.Fatalf("session %s should be revoked", s.TokenID)
		}
	}

	// Second pass has nothing left to do.
	n, err = svc.RevokeAllUserSessions(ctx, "user-1", "tenant-a", "password_change", "user-1", keep)
	if err != nil || n != 0 {
		t.Fatalf("second pass = (%d, %v), want (0, nil)", n, err)
	}
}
