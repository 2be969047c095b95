// Package tenancy binds the active tenant id to a request's call chain.
//
// The binding is a context value: it is inherited by everything the request
// executes or schedules through that context, an inner With shadows an outer
// one only for its own subtree, and no concurrently running chain can observe
// another chain's binding. There is deliberately no package-level fallback; a
// call site without a binding fails closed.
package tenancy

import (
	"context"
	"errors"
)

// ErrMissingTenantContext is returned by Current when no tenant is bound to the
// context. It signals a programming error: every data-access path must run
// inside RunWithTenant (or a context produced by With).
var ErrMissingTenantContext = errors.New("tenancy: no tenant bound to context")

type contextKey struct{ name string }

var tenantIDKey = contextKey{"tenant_id"}

// With returns a context with tenantID bound. Used by middleware after the
// caller's session is resolved; nested calls shadow outer bindings.
func With(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// Current returns the tenant id bound to ctx, or ErrMissingTenantContext if
// ctx is outside any binding.
func Current(ctx context.Context) (string, error) {
	v, ok := ctx.Value(tenantIDKey).(string)
	if !ok || v == "" {
		return "", ErrMissingTenantContext
	}
	return v, nil
}

// RunWithTenant executes fn with tenantID bound for the duration of the call
// chain rooted at fn, including any work fn schedules with the derived context.
func RunWithTenant(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	return fn(With(ctx, tenantID))
}
