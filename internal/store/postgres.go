package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Postgres implements Store over a single documents table with a jsonb data
// column, filtered by containment (@>).
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a Store backed by the given database.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const docColumns = "id, tenant_id, data, created_at, updated_at, deleted_at"

// FindOne returns the active document for id within the tenant, or nil if not
// found. It returns an error only for database failures, not for missing rows.
func (p *Postgres) FindOne(ctx context.Context, tenantID, collection, id string) (*Document, error) {
	q := "SELECT " + docColumns + " FROM documents WHERE collection = $1 AND id = $2 AND deleted_at IS NULL"
	args := []any{collection, id}
	if tenantID != "" {
		q += " AND tenant_id = $3"
		args = append(args, tenantID)
	}
	row := p.db.QueryRowContext(ctx, q, args...)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// Find returns active documents in the collection matching f, scoped to the
// tenant unless tenantID is "" (system path).
func (p *Postgres) Find(ctx context.Context, tenantID, collection string, f Filter) ([]*Document, error) {
	q := "SELECT " + docColumns + " FROM documents WHERE collection = $1 AND deleted_at IS NULL"
	args := []any{collection}
	if tenantID != "" {
		args = append(args, tenantID)
		q += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if len(f) > 0 {
		fj, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		args = append(args, fj)
		q += fmt.Sprintf(" AND data @> $%d::jsonb", len(args))
	}
	q += " ORDER BY created_at"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Insert persists the document. The document must carry a tenant id.
func (p *Postgres) Insert(ctx context.Context, collection string, doc *Document) error {
	if doc.TenantID == "" {
		return ErrMissingTenant
	}
	dj, err := json.Marshal(doc.Data)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, tenant_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		collection, doc.ID, doc.TenantID, dj, doc.CreatedAt, doc.UpdatedAt)
	return err
}

// Update merges changes into the document's data. Returns false if no active
// row matched within the tenant.
func (p *Postgres) Update(ctx context.Context, tenantID, collection, id string, changes map[string]any) (bool, error) {
	cj, err := json.Marshal(changes)
	if err != nil {
		return false, err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $1::jsonb, updated_at = $2
		 WHERE collection = $3 AND id = $4 AND tenant_id = $5 AND deleted_at IS NULL`,
		cj, time.Now().UTC(), collection, id, tenantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateMany merges changes into every active document matching f within the
// tenant and returns the number of rows affected.
func (p *Postgres) UpdateMany(ctx context.Context, tenantID, collection string, f Filter, changes map[string]any) (int64, error) {
	cj, err := json.Marshal(changes)
	if err != nil {
		return 0, err
	}
	q := `UPDATE documents SET data = data || $1::jsonb, updated_at = $2
	      WHERE collection = $3 AND tenant_id = $4 AND deleted_at IS NULL`
	args := []any{cj, time.Now().UTC(), collection, tenantID}
	if len(f) > 0 {
		fj, err := json.Marshal(f)
		if err != nil {
			return 0, err
		}
		args = append(args, fj)
		q += fmt.Sprintf(" AND data @> $%d::jsonb", len(args))
	}
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete soft-deletes the document within the tenant. Returns false if no
// active row matched.
func (p *Postgres) Delete(ctx context.Context, tenantID, collection, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE documents SET deleted_at = $1
		 WHERE collection = $2 AND id = $3 AND tenant_id = $4 AND deleted_at IS NULL`,
		time.Now().UTC(), collection, id, tenantID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteMany soft-deletes every active document matching f within the tenant
// and returns the number of rows affected.
func (p *Postgres) DeleteMany(ctx context.Context, tenantID, collection string, f Filter) (int64, error) {
	q := `UPDATE documents SET deleted_at = $1
	      WHERE collection = $2 AND tenant_id = $3 AND deleted_at IS NULL`
	args := []any{time.Now().UTC(), collection, tenantID}
	if len(f) > 0 {
		fj, err := json.Marshal(f)
		if err != nil {
			return 0, err
		}
		args = append(args, fj)
		q += fmt.Sprintf(" AND data @> $%d::jsonb", len(args))
	}
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Upsert inserts the document or replaces its data in place. The conflict
// branch is conditioned on the stored tenant id, so an upsert can never move a
// row between tenants; such an attempt updates nothing and reports
// ErrCrossTenantWrite.
func (p *Postgres) Upsert(ctx context.Context, collection string, doc *Document) error {
	if doc.TenantID == "" {
		return ErrMissingTenant
	}
	dj, err := json.Marshal(doc.Data)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, tenant_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at, deleted_at = NULL
		 WHERE documents.tenant_id = EXCLUDED.tenant_id`,
		collection, doc.ID, doc.TenantID, dj, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCrossTenantWrite
	}
	return nil
}

// CountActive returns the number of active documents in the collection for the
// tenant ("" counts across all tenants).
func (p *Postgres) CountActive(ctx context.Context, tenantID, collection string) (int64, error) {
	q := "SELECT count(*) FROM documents WHERE collection = $1 AND deleted_at IS NULL"
	args := []any{collection}
	if tenantID != "" {
		q += " AND tenant_id = $2"
		args = append(args, tenantID)
	}
	var n int64
	err := p.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc  Document
		data []byte
		del  sql.NullTime
	)
	if err := row.Scan(&doc.ID, &doc.TenantID, &data, &doc.CreatedAt, &doc.UpdatedAt, &del); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc.Data); err != nil {
			return nil, err
		}
	}
	if del.Valid {
		doc.DeletedAt = &del.Time
	}
	return &doc, nil
}
