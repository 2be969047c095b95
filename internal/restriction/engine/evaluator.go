// Package engine decides whether a tenant's writes are restricted, based on
// its plan, usage, and account age.
package engine

import "context"

// Input is the fact set a restriction decision is made from. Counts and
// thresholds are carried explicitly so the policy itself stays free of
// configuration lookups.
type Input struct {
	Plan              string
	ActiveEntityCount int64
	EntityLimit       int64
	DaysSinceCreated  int
	GraceDays         int
}

// Evaluator decides whether the given tenant facts place it under write
// restriction.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (bool, error)
}
