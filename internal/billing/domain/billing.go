// Package domain holds the billing entities: one account per tenant and the
// payment windows that determine its active plan.
package domain

import "time"

// Plan names. Anything other than free is a paid plan.
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// Account is the billing account of a tenant. Its creation time anchors the
// grace window for free-plan restrictions.
type Account struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlanPayment is a paid (or granted) plan window for an account. The account's
// active plan at time t is the payment whose window contains t; when windows
// overlap, the one ending latest wins.
type PlanPayment struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Plan      string    `json:"plan"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`
}

// Covers reports whether the payment window contains t. The window is
// inclusive on both ends.
func (p *PlanPayment) Covers(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}
