package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/backend/internal/billing/domain"
)

// PostgresRepository persists billing data in the billing_accounts and
// plan_payments tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a billing repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetAccountByTenant returns the tenant's billing account, or nil if the
// tenant has none yet.
func (r *PostgresRepository) GetAccountByTenant(ctx context.Context, tenantID string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, created_at FROM billing_accounts WHERE tenant_id = $1",
		tenantID).Scan(&a.ID, &a.TenantID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO billing_accounts (id, tenant_id, created_at) VALUES ($1, $2, $3)",
		a.ID, a.TenantID, a.CreatedAt)
	return err
}

// ActivePlan returns the plan of the payment window containing now. When
// windows overlap, the one that ends latest wins. Returns "" when no window
// covers now.
func (r *PostgresRepository) ActivePlan(ctx context.Context, accountID string, now time.Time) (string, error) {
	var plan string
	err := r.db.QueryRowContext(ctx,
		`SELECT plan FROM plan_payments
		 WHERE account_id = $1 AND start_date <= $2 AND end_date >= $2
		 ORDER BY end_date DESC LIMIT 1`,
		accountID, now).Scan(&plan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return plan, nil
}

func (r *PostgresRepository) CreatePayment(ctx context.Context, p *domain.PlanPayment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plan_payments (id, account_id, plan, start_date, end_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.AccountID, p.Plan, p.StartDate, p.EndDate, p.CreatedAt)
	return err
}

// ListPayments returns the account's payment windows, latest-ending first.
func (r *PostgresRepository) ListPayments(ctx context.Context, accountID string) ([]*domain.PlanPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, plan, start_date, end_date, created_at
		 FROM plan_payments WHERE account_id = $1 ORDER BY end_date DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PlanPayment
	for rows.Next() {
		var p domain.PlanPayment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Plan, &p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
