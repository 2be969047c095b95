package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"classtrack/backend/internal/tenancy"
)

// SecurityAuditor records security-relevant store events (system-query use,
// cross-tenant write rejections). Best-effort; implemented by the audit logger.
type SecurityAuditor interface {
	SecurityEvent(ctx context.Context, action string, metadata map[string]any)
}

// SystemAuthorizer decides whether the caller may run cross-tenant queries and
// returns the acting user id for the audit record.
type SystemAuthorizer func(ctx context.Context) (actorID string, err error)

// Scoped wraps a Store so that every operation is bound to the tenant on the
// request context. Reads inject the tenant filter, writes stamp or validate the
// document's tenant id, and any operation without an active tenant binding
// fails closed with tenancy.ErrMissingTenantContext.
//
// Cross-tenant reads go through System, which is separately authorized and
// audited; there is no other way past the scope.
type Scoped struct {
	base      Store
	authorize SystemAuthorizer
	auditor   SecurityAuditor
	log       *zap.SugaredLogger
	devMode   bool
}

// NewScoped returns the tenant-scoping wrapper around base. auditor may be nil
// (events are then only logged); authorize must be set for System to work.
// devMode makes missing-tenant violations loud in logs; the operation is denied
// either way.
func NewScoped(base Store, authorize SystemAuthorizer, auditor SecurityAuditor, log *zap.SugaredLogger, devMode bool) *Scoped {
	return &Scoped{base: base, authorize: authorize, auditor: auditor, log: log, devMode: devMode}
}

func (s *Scoped) tenant(ctx context.Context, op, collection string) (string, error) {
	id, err := tenancy.Current(ctx)
	if err != nil {
		if s.devMode {
			s.log.Errorw("data access outside tenant context", "op", op, "collection", collection)
		} else {
			s.log.Warnw("data access outside tenant context denied", "op", op, "collection", collection)
		}
		return "", fmt.Errorf("store: %s %s: %w", op, collection, err)
	}
	return id, nil
}

// checkWrite validates the document's explicit tenant id against the ambient
// one, stamping it when absent. A mismatch is rejected before the store is
// touched and recorded as a suspicious event.
func (s *Scoped) checkWrite(ctx context.Context, tenantID, collection string, doc *Document) error {
	if doc.TenantID == "" {
		doc.TenantID = tenantID
		return nil
	}
	if doc.TenantID != tenantID {
		s.log.Warnw("cross-tenant write rejected",
			"collection", collection, "doc_tenant", doc.TenantID, "ctx_tenant", tenantID)
		if s.auditor != nil {
			s.auditor.SecurityEvent(ctx, "cross_tenant_write_rejected", map[string]any{
				"collection": collection,
				"doc_tenant": doc.TenantID,
			})
		}
		return ErrCrossTenantWrite
	}
	return nil
}

func (s *Scoped) FindOne(ctx context.Context, collection, id string) (*Document, error) {
	tenant, err := s.tenant(ctx, "find_one", collection)
	if err != nil {
		return nil, err
	}
	return s.base.FindOne(ctx, tenant, collection, id)
}

func (s *Scoped) Find(ctx context.Context, collection string, f Filter) ([]*Document, error) {
	tenant, err := s.tenant(ctx, "find", collection)
	if err != nil {
		return nil, err
	}
	return s.base.Find(ctx, tenant, collection, f)
}

func (s *Scoped) Insert(ctx context.Context, collection string, doc *Document) error {
	tenant, err := s.tenant(ctx, "insert", collection)
	if err != nil {
		return err
	}
	if err := s.checkWrite(ctx, tenant, collection, doc); err != nil {
		return err
	}
	return s.base.Insert(ctx, collection, doc)
}

func (s *Scoped) Update(ctx context.Context, collection, id string, changes map[string]any) (bool, error) {
	tenant, err := s.tenant(ctx, "update", collection)
	if err != nil {
		return false, err
	}
	return s.base.Update(ctx, tenant, collection, id, changes)
}

func (s *Scoped) UpdateMany(ctx context.Context, collection string, f Filter, changes map[string]any) (int64, error) {
	tenant, err := s.tenant(ctx, "update_many", collection)
	if err != nil {
		return 0, err
	}
	return s.base.UpdateMany(ctx, tenant, collection, f, changes)
}

func (s *Scoped) Delete(ctx context.Context, collection, id string) (bool, error) {
	tenant, err := s.tenant(ctx, "delete", collection)
	if err != nil {
		return false, err
	}
	return s.base.Delete(ctx, tenant, collection, id)
}

func (s *Scoped) DeleteMany(ctx context.Context, collection string, f Filter) (int64, error) {
	tenant, err := s.tenant(ctx, "delete_many", collection)
	if err != nil {
		return 0, err
	}
	return s.base.DeleteMany(ctx, tenant, collection, f)
}

func (s *Scoped) Upsert(ctx context.Context, collection string, doc *Document) error {
	tenant, err := s.tenant(ctx, "upsert", collection)
	if err != nil {
		return err
	}
	if err := s.checkWrite(ctx, tenant, collection, doc); err != nil {
		return err
	}
	return s.base.Upsert(ctx, collection, doc)
}

func (s *Scoped) CountActive(ctx context.Context, collection string) (int64, error) {
	tenant, err := s.tenant(ctx, "count_active", collection)
	if err != nil {
		return 0, err
	}
	return s.base.CountActive(ctx, tenant, collection)
}

// System authorizes the caller for cross-tenant queries, records the use as an
// audit event, and returns a read-only handle that skips tenant scoping. Used
// only by admin reporting paths; reason names the report being produced.
func (s *Scoped) System(ctx context.Context, reason string) (*SystemStore, error) {
	if s.authorize == nil {
		return nil, fmt.Errorf("store: system access not configured")
	}
	actorID, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Infow("system query authorized", "actor", actorID, "reason", reason)
	if s.auditor != nil {
		s.auditor.SecurityEvent(ctx, "system_query", map[string]any{
			"actor":  actorID,
			"reason": reason,
		})
	}
	return &SystemStore{base: s.base}, nil
}

// SystemStore is the privileged cross-tenant read handle. tenantID may be ""
// to aggregate across all tenants, or a specific tenant for targeted reports.
type SystemStore struct {
	base Store
}

func (s *SystemStore) Find(ctx context.Context, tenantID, collection string, f Filter) ([]*Document, error) {
	return s.base.Find(ctx, tenantID, collection, f)
}

func (s *SystemStore) CountActive(ctx context.Context, tenantID, collection string) (int64, error) {
	return s.base.CountActive(ctx, tenantID, collection)
}
