package store

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"classtrack/backend/internal/tenancy"
)

type recordingAuditor struct {
	actions []string
	meta    []map[string]any
}

func (r *recordingAuditor) SecurityEvent(ctx context.Context, action string, metadata map[string]any) {
	r.actions = append(r.actions, action)
	r.meta = append(r.meta, metadata)
}

func newTestScoped(base Store, auditor SecurityAuditor) *Scoped {
	authorize := func(ctx context.Context) (string, error) {
		if v, ok := ctx.Value(testAdminKey{}).(string); ok {
			return v, nil
		}
		return "", errors.New("not an admin")
	}
	return NewScoped(base, authorize, auditor, zap.NewNop().Sugar(), true)
}

type testAdminKey struct{}

func TestScoped_FailsClosedWithoutTenant(t *testing.T) {
	s := newTestScoped(NewMemory(), nil)
	ctx := context.Background()

	if _, err := s.Find(ctx, "students", nil); !errors.Is(err, tenancy.ErrMissingTenantContext) {
		t.Errorf("Find err = %v, want ErrMissingTenantContext", err)
	}
	err := s.Insert(ctx, "students", &Document{ID: "s1", Data: map[string]any{"name": "a"}})
	if !errors.Is(err, tenancy.ErrMissingTenantContext) {
		t.Errorf("Insert err = %v, want ErrMissingTenantContext", err)
	}
	if _, err := s.Delete(ctx, "students", "s1"); !errors.Is(err, tenancy.ErrMissingTenantContext) {
		t.Errorf("Delete err = %v, want ErrMissingTenantContext", err)
	}
}

func TestScoped_ReadsAreTenantScoped(t *testing.T) {
	mem := NewMemory()
	s := newTestScoped(mem, nil)
	ctxA := tenancy.With(context.Background(), "tenant-a")
	ctxB := tenancy.With(context.Background(), "tenant-b")

	if err := s.Insert(ctxA, "students", &Document{ID: "s1", Data: map[string]any{"grade": "5"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctxB, "students", &Document{ID: "s2", Data: map[string]any{"grade": "5"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	docs, err := s.Find(ctxA, "students", Filter{"grade": "5"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "s1" {
		t.Fatalf("tenant-a sees %d docs, want only s1", len(docs))
	}
	// the other tenant's row is invisible even by id
	got, err := s.FindOne(ctxA, "students", "s2")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got != nil {
		t.Fatal("tenant-a must not see tenant-b's document")
	}
}

func TestScoped_InsertStampsTenant(t *testing.T) {
	mem := NewMemory()
	s := newTestScoped(mem, nil)
	ctx := tenancy.With(context.Background(), "tenant-a")

	if err := s.Insert(ctx, "students", &Document{ID: "s1", Data: map[string]any{}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	d, err := mem.FindOne(context.Background(), "", "students", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if d.TenantID != "tenant-a" {
		t.Errorf("stamped TenantID = %q, want tenant-a", d.TenantID)
	}
}

func TestScoped_CrossTenantWriteRejectedAndAudited(t *testing.T) {
	mem := NewMemory()
	auditor := &recordingAuditor{}
	s := newTestScoped(mem, auditor)
	ctx := tenancy.With(context.Background(), "tenant-a")

	err := s.Insert(ctx, "students", &Document{ID: "s1", TenantID: "tenant-b", Data: map[string]any{}})
	if !errors.Is(err, ErrCrossTenantWrite) {
		t.Fatalf("Insert err = %v, want ErrCrossTenantWrite", err)
	}
	// nothing persisted
	if n, _ := mem.CountActive(context.Background(), "", "students"); n != 0 {
		t.Fatalf("store has %d docs after rejected write, want 0", n)
	}
	if len(auditor.actions) != 1 || auditor.actions[0] != "cross_tenant_write_rejected" {
		t.Errorf("audited actions = %v", auditor.actions)
	}
}

func TestScoped_UpsertCannotChangeTenant(t *testing.T) {
	mem := NewMemory()
	s := newTestScoped(mem, nil)
	ctxA := tenancy.With(context.Background(), "tenant-a")
	ctxB := tenancy.With(context.Background(), "tenant-b")

	if err := s.Upsert(ctxA, "courses", &Document{ID: "c1", Data: map[string]any{"title": "math"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	err := s.Upsert(ctxB, "courses", &Document{ID: "c1", Data: map[string]any{"title": "stolen"}})
	if !errors.Is(err, ErrCrossTenantWrite) {
		t.Fatalf("Upsert from other tenant err = %v, want ErrCrossTenantWrite", err)
	}
	d, _ := mem.FindOne(context.Background(), "", "courses", "c1")
	if d.TenantID != "tenant-a" || d.Data["title"] != "math" {
		t.Errorf("row changed by rejected upsert: %+v", d)
	}
}

func TestScoped_BulkWritesScoped(t *testing.T) {
	mem := NewMemory()
	s := newTestScoped(mem, nil)
	ctxA := tenancy.With(context.Background(), "tenant-a")
	ctxB := tenancy.With(context.Background(), "tenant-b")

	for _, c := range []struct {
		ctx context.Context
		id  string
	}{{ctxA, "a1"}, {ctxA, "a2"}, {ctxB, "b1"}} {
		if err := s.Insert(c.ctx, "attendance", &Document{ID: c.id, Data: map[string]any{"status": "open"}}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.UpdateMany(ctxA, "attendance", Filter{"status": "open"}, map[string]any{"status": "closed"})
	if err != nil {
		t.Fatalf("UpdateMany: %v", err)
	}
	if n != 2 {
		t.Errorf("UpdateMany affected %d, want 2", n)
	}
	// tenant-b untouched
	d, _ := mem.FindOne(context.Background(), "tenant-b", "attendance", "b1")
	if d.Data["status"] != "open" {
		t.Errorf("tenant-b doc mutated by tenant-a bulk write: %v", d.Data)
	}

	deleted, err := s.DeleteMany(ctxA, "attendance", nil)
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteMany affected %d, want 2", deleted)
	}
	if cnt, _ := s.CountActive(ctxB, "attendance"); cnt != 1 {
		t.Errorf("tenant-b count = %d, want 1", cnt)
	}
}

func TestScoped_SystemRequiresAuthorizationAndAudits(t *testing.T) {
	mem := NewMemory()
	auditor := &recordingAuditor{}
	s := newTestScoped(mem, auditor)
	ctxA := tenancy.With(context.Background(), "tenant-a")
	ctxB := tenancy.With(context.Background(), "tenant-b")
	_ = s.Insert(ctxA, "students", &Document{ID: "s1", Data: map[string]any{}})
	_ = s.Insert(ctxB, "students", &Document{ID: "s2", Data: map[string]any{}})

	if _, err := s.System(ctxA, "enrollment report"); err == nil {
		t.Fatal("System without admin authorization should fail")
	}

	adminCtx := context.WithValue(ctxA, testAdminKey{}, "admin-1")
	sys, err := s.System(adminCtx, "enrollment report")
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	n, err := sys.CountActive(adminCtx, "", "students")
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 2 {
		t.Errorf("system count = %d, want 2 (all tenants)", n)
	}
	found := false
	for _, a := range auditor.actions {
		if a == "system_query" {
			found = true
		}
	}
	if !found {
		t.Error("system query use was not audited")
	}
}
