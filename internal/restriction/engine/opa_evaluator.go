package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const policyQuery = "data.classtrack.restriction.restricted"

// Rego policy for the free-plan write restriction. A tenant is restricted only
// when it is on the free plan, holds more active entities than the limit, and
// its grace window since account creation has elapsed.
const defaultRegoPolicy = `package classtrack.restriction

default restricted = false

restricted if {
	input.plan == "free"
	input.active_entity_count > input.entity_limit
	input.days_since_created >= input.grace_days
}
`

// OPAEvaluator evaluates the restriction policy with the in-process OPA Rego
// engine.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the restriction policy and returns the evaluator.
func NewOPAEvaluator() (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"restriction.rego": defaultRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile restriction policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// Evaluate runs the policy against the given facts.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in Input) (bool, error) {
	q := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(e.compiler),
		rego.Input(map[string]interface{}{
			"plan":                in.Plan,
			"active_entity_count": in.ActiveEntityCount,
			"entity_limit":        in.EntityLimit,
			"days_since_created":  in.DaysSinceCreated,
			"grace_days":          in.GraceDays,
		}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval restriction policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("restriction query returned no result")
	}
	restricted, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("restriction query returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return restricted, nil
}

// HealthCheck verifies that the compiled policy evaluates. Does not touch
// external state.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Evaluate(ctx, Input{Plan: "free", EntityLimit: 1, GraceDays: 1})
	return err
}
