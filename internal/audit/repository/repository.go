package repository

import (
	"context"

	"classtrack/backend/internal/audit/domain"
)

// Repository defines persistence for audit log entries.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	// ListByTenant returns entries for the tenant, newest first, paginated.
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.Entry, error)
}
