// Package restriction computes the per-tenant plan restriction status and
// exposes the write guard that every mutating handler consults.
package restriction

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	billingdomain "classtrack/backend/internal/billing/domain"
	billingrepo "classtrack/backend/internal/billing/repository"
	"classtrack/backend/internal/restriction/engine"
	"classtrack/backend/internal/store"
)

// Modules whose write handlers are blocked for restricted tenants. Reads and
// all other modules stay open.
var restrictedWriteModules = map[string]struct{}{
	"payments":   {},
	"attendance": {},
	"courses":    {},
	"schedules":  {},
}

// Status is the cached restriction decision for a tenant.
type Status struct {
	TenantID          string    `json:"tenantId"`
	Plan              string    `json:"plan"`
	ActiveEntityCount int64     `json:"activeEntityCount"`
	Restricted        bool      `json:"restricted"`
	TenantAccountID   string    `json:"tenantAccountId"`
	AccountCreatedAt  time.Time `json:"accountCreatedAt"`
	DaysSinceCreated  int       `json:"daysSinceCreated"`
}

// Block is the structured payload returned to a caller whose write was
// refused. It is an expected business outcome, not an error.
type Block struct {
	Restricted        bool   `json:"restricted"`
	Plan              string `json:"plan"`
	ActiveEntityCount int64  `json:"activeEntityCount"`
	Module            string `json:"module"`
}

// Gate resolves and caches restriction statuses and guards write paths.
// Lookups run against the unscoped store because the gate is a system
// component, not a request actor.
type Gate struct {
	billing   billingrepo.Repository
	documents store.Store
	evaluator engine.Evaluator
	cache     *statusCache
	clock     quartz.Clock
	log       *zap.SugaredLogger

	usageCollection string
	entityLimit     int64
	graceDays       int
}

// NewGate returns a restriction gate. usageCollection names the entity
// collection whose active count meters free-plan usage.
func NewGate(
	billing billingrepo.Repository,
	documents store.Store,
	evaluator engine.Evaluator,
	clock quartz.Clock,
	log *zap.SugaredLogger,
	usageCollection string,
	entityLimit int64,
	graceDays int,
	cacheTTL time.Duration,
) *Gate {
	return &Gate{
		billing:         billing,
		documents:       documents,
		evaluator:       evaluator,
		cache:           newStatusCache(clock, cacheTTL),
		clock:           clock,
		log:             log,
		usageCollection: usageCollection,
		entityLimit:     entityLimit,
		graceDays:       graceDays,
	}
}

// Status returns the tenant's restriction status, recomputing on cache miss
// or TTL expiry. Recomputation races between concurrent requests are
// tolerated; the last writer wins.
func (g *Gate) Status(ctx context.Context, tenantID string) (*Status, error) {
	if s, ok := g.cache.get(tenantID); ok {
		return s, nil
	}
	s, err := g.compute(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	g.cache.set(tenantID, s)
	return s, nil
}

// Invalidate drops the tenant's cached status, forcing the next read to
// recompute. Called after plan or billing changes.
func (g *Gate) Invalidate(tenantID string) {
	g.cache.invalidate(tenantID)
}

// AssertWriteAllowed returns a non-nil Block when the tenant is restricted
// and the module is in the restricted write set, nil otherwise. It never
// returns an error: when the status cannot be computed the write is allowed
// and the failure logged, so a billing outage does not take writes down.
func (g *Gate) AssertWriteAllowed(ctx context.Context, tenantID, module string) *Block {
	if _, ok := restrictedWriteModules[module]; !ok {
		return nil
	}
	s, err := g.Status(ctx, tenantID)
	if err != nil {
		g.log.Warnw("restriction status unavailable, allowing write",
			"tenant_id", tenantID, "module", module, "error", err)
		return nil
	}
	if !s.Restricted {
		return nil
	}
	return &Block{
		Restricted:        true,
		Plan:              s.Plan,
		ActiveEntityCount: s.ActiveEntityCount,
		Module:            module,
	}
}

func (g *Gate) compute(ctx context.Context, tenantID string) (*Status, error) {
	now := g.clock.Now().UTC()
	s := &Status{TenantID: tenantID, Plan: billingdomain.PlanFree}

	account, err := g.billing.GetAccountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// Tenant has no billing account yet. Nothing to anchor a grace
		// window on, so it cannot be restricted.
		return s, nil
	}
	s.TenantAccountID = account.ID
	s.AccountCreatedAt = account.CreatedAt
	s.DaysSinceCreated = int(now.Sub(account.CreatedAt).Hours() / 24)

	plan, err := g.billing.ActivePlan(ctx, account.ID, now)
	if err != nil {
		return nil, err
	}
	if plan != "" {
		s.Plan = plan
	}

	count, err := g.documents.CountActive(ctx, tenantID, g.usageCollection)
	if err != nil {
		return nil, err
	}
	s.ActiveEntityCount = count

	restricted, err := g.evaluator.Evaluate(ctx, engine.Input{
		Plan:              s.Plan,
		ActiveEntityCount: s.ActiveEntityCount,
		EntityLimit:       g.entityLimit,
		DaysSinceCreated:  s.DaysSinceCreated,
		GraceDays:         g.graceDays,
	})
	if err != nil {
		return nil, err
	}
	s.Restricted = restricted
	return s, nil
}
