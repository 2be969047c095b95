// Package repository persists billing accounts and plan payments.
package repository

import (
	"context"
	"time"

	"classtrack/backend/internal/billing/domain"
)

// Repository is the billing data access contract. Reads resolve (nil, nil) or
// a zero value when nothing matches; the restriction layer maps absence to the
// free plan.
type Repository interface {
	GetAccountByTenant(ctx context.Context, tenantID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, a *domain.Account) error
	// ActivePlan returns the plan name of the payment window containing now,
	// preferring the window that ends latest, or "" when no window covers now.
	ActivePlan(ctx context.Context, accountID string, now time.Time) (string, error)
	CreatePayment(ctx context.Context, p *domain.PlanPayment) error
	ListPayments(ctx context.Context, accountID string) ([]*domain.PlanPayment, error)
}
