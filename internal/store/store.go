// Package store provides a generic tenant-column document store and the
// tenant-scoping wrapper every data-access path goes through.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCrossTenantWrite is returned when a caller attempts to persist a document
	// whose explicit tenant id differs from the one bound to the request, or when
	// an upsert would change an existing row's tenant id. Nothing is persisted.
	ErrCrossTenantWrite = errors.New("store: cross-tenant write rejected")
	// ErrMissingTenant is returned by unscoped implementations when a write
	// carries no tenant id at all.
	ErrMissingTenant = errors.New("store: document has no tenant id")
)

// Document is one row in a collection. Data holds the business fields; the
// envelope fields are maintained by the store.
type Document struct {
	ID        string
	TenantID  string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // soft delete; nil when active
}

// Filter matches documents whose Data contains every listed field with an
// equal value. An empty Filter matches all active documents.
type Filter map[string]any

// Store is the unscoped per-tenant-filterable CRUD interface. A tenantID of ""
// on read operations means all tenants and is reserved for the audited system
// path; writes always require an explicit tenant on the document.
//
// Missing rows are reported as (nil, nil) or (false, nil); errors are database
// failures only. Deletes are soft: rows become inert, not removed.
type Store interface {
	FindOne(ctx context.Context, tenantID, collection, id string) (*Document, error)
	Find(ctx context.Context, tenantID, collection string, f Filter) ([]*Document, error)
	Insert(ctx context.Context, collection string, doc *Document) error
	Update(ctx context.Context, tenantID, collection, id string, changes map[string]any) (bool, error)
	UpdateMany(ctx context.Context, tenantID, collection string, f Filter, changes map[string]any) (int64, error)
	Delete(ctx context.Context, tenantID, collection, id string) (bool, error)
	DeleteMany(ctx context.Context, tenantID, collection string, f Filter) (int64, error)
	Upsert(ctx context.Context, collection string, doc *Document) error
	CountActive(ctx context.Context, tenantID, collection string) (int64, error)
}
