package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"classtrack/backend/internal/billing/domain"
)

// MemoryRepository is an in-memory billing repository for tests and the seed command.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account // keyed by tenant id
	payments map[string][]*domain.PlanPayment
}

// NewMemoryRepository returns an empty in-memory billing repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]*domain.Account),
		payments: make(map[string][]*domain.PlanPayment),
	}
}

func (r *MemoryRepository) GetAccountByTenant(ctx context.Context, tenantID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) CreateAccount(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.TenantID] = &cp
	return nil
}

func (r *MemoryRepository) ActivePlan(ctx context.Context, accountID string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.PlanPayment
	for _, p := range r.payments[accountID] {
		if !p.Covers(now) {
			continue
		}
		if best == nil || p.EndDate.After(best.EndDate) {
			best = p
		}
	}
	if best == nil {
		return "", nil
	}
	return best.Plan, nil
}

func (r *MemoryRepository) CreatePayment(ctx context.Context, p *domain.PlanPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.AccountID] = append(r.payments[p.AccountID], &cp)
	return nil
}

func (r *MemoryRepository) ListPayments(ctx context.Context, accountID string) ([]*domain.PlanPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PlanPayment
	for _, p := range r.payments[accountID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}
