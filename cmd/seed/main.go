// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev tenant's billing account already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	billingdomain "classtrack/backend/internal/billing/domain"
	billingrepo "classtrack/backend/internal/billing/repository"
	"classtrack/backend/internal/config"
	"classtrack/backend/internal/db"
	"classtrack/backend/internal/logger"
	"classtrack/backend/internal/store"
	"classtrack/backend/internal/tenancy"
)

const (
	devFreeTenant = "dev-tenant-free"
	devPaidTenant = "dev-tenant-paid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Production() {
		log.Fatal("seed: refusing to run with APP_ENV=production")
	}
	zlog := logger.New(cfg.LogLevel)

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: database connect failed: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	billing := billingrepo.NewPostgresRepository(sqlDB)

	existing, err := billing.GetAccountByTenant(ctx, devFreeTenant)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Println("seed: dev data already present, nothing to do")
		return
	}

	now := time.Now().UTC()

	// Free tenant, old enough to be past the signup grace window, with enough
	// students to trip the restriction gate.
	if err := billing.CreateAccount(ctx, &billingdomain.Account{
		ID: uuid.New().String(), TenantID: devFreeTenant, CreatedAt: now.AddDate(0, 0, -30),
	}); err != nil {
		log.Fatalf("seed: %v", err)
	}

	// Paid tenant with an active premium window.
	paidAccountID := uuid.New().String()
	if err := billing.CreateAccount(ctx, &billingdomain.Account{
		ID: paidAccountID, TenantID: devPaidTenant, CreatedAt: now.AddDate(0, 0, -90),
	}); err != nil {
		log.Fatalf("seed: %v", err)
	}
	if err := billing.CreatePayment(ctx, &billingdomain.PlanPayment{
		ID:        uuid.New().String(),
		AccountID: paidAccountID,
		Plan:      billingdomain.PlanPremium,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 11, 0),
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("seed: %v", err)
	}

	// Students are written through the scoped store so the seed exercises the
	// same tenant-binding path as request handlers.
	scoped := store.NewScoped(store.NewPostgres(sqlDB), nil, nil, zlog, true)
	for tenant, count := range map[string]int{devFreeTenant: 20, devPaidTenant: 5} {
		err := tenancy.RunWithTenant(ctx, tenant, func(ctx context.Context) error {
			for i := 0; i < count; i++ {
				doc := &store.Document{
					ID: uuid.New().String(),
					Data: map[string]any{
						"name":  fmt.Sprintf("Dev Student %d", i+1),
						"grade": 1 + i%6,
					},
				}
				if err := scoped.Insert(ctx, cfg.UsageCollection, doc); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Fatalf("seed: students for %s: %v", tenant, err)
		}
	}

	log.Printf("seed: created %s (restricted free tenant) and %s (premium tenant)",
		devFreeTenant, devPaidTenant)
}
