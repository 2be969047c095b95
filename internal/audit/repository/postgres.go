package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"classtrack/backend/internal/audit/domain"
)

// PostgresRepository persists audit entries in the audit_logs table, with the
// actor, diff, snapshot, and metadata stored as jsonb.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const auditColumns = "id, tenant_id, module, action, entity_id, actor, ip, user_agent, changes, snapshot, metadata, occurred_at"

// Create persists the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	actor, err := json.Marshal(e.Actor)
	if err != nil {
		return err
	}
	changes, err := marshalOrNil(e.Changes)
	if err != nil {
		return err
	}
	snapshot, err := marshalOrNil(e.Snapshot)
	if err != nil {
		return err
	}
	metadata, err := marshalOrNil(e.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, tenant_id, module, action, entity_id, actor, ip, user_agent, changes, snapshot, metadata, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.TenantID, e.Module, e.Action, e.EntityID, actor, e.IP, e.UserAgent, changes, snapshot, metadata, e.OccurredAt)
	return err
}

// GetByID returns the entry for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+auditColumns+" FROM audit_logs WHERE id = $1", id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// ListByTenant returns entries for the tenant, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit_logs WHERE tenant_id = $1 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3",
		tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalOrNil(v any) ([]byte, error) {
	switch x := v.(type) {
	case []domain.FieldChange:
		if len(x) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e        domain.Entry
		actor    []byte
		changes  []byte
		snapshot []byte
		metadata []byte
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.Module, &e.Action, &e.EntityID, &actor, &e.IP, &e.UserAgent,
		&changes, &snapshot, &metadata, &e.OccurredAt)
	if err != nil {
		return nil, err
	}
	if len(actor) > 0 {
		if err := json.Unmarshal(actor, &e.Actor); err != nil {
			return nil, err
		}
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return nil, err
		}
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &e.Snapshot); err != nil {
			return nil, err
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
