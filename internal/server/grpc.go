// Package server assembles the gRPC server: the interceptor chain that
// enforces authentication, tenant scoping, write restrictions, and mutation
// auditing for every registered service.
package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"

	"classtrack/backend/internal/server/interceptors"
)

// Health check is served without a token.
var defaultPublicMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

// Deps holds the cross-cutting dependencies of the interceptor chain.
type Deps struct {
	// Sessions resolves Bearer tokens to live sessions. Required.
	Sessions interceptors.SessionResolver
	// Gate blocks writes for restricted tenants. Required.
	Gate interceptors.WriteGate
	// Audit records mutations. Required.
	Audit interceptors.MutationRecorder
	// PublicMethods are full method names served without a token, merged with
	// the built-in health check entries.
	PublicMethods map[string]bool
	// SkipAuditMethods are full method names never audited.
	SkipAuditMethods map[string]bool
}

// New returns a gRPC server with the standard interceptor chain and the
// health service registered. Business services are registered by the caller.
// Chain order matters: auth binds tenant and identity, restriction consults
// them, audit records the outcome.
func New(deps Deps) (*grpc.Server, *health.Server) {
	public := make(map[string]bool, len(defaultPublicMethods)+len(deps.PublicMethods))
	for m := range defaultPublicMethods {
		public[m] = true
	}
	for m, v := range deps.PublicMethods {
		public[m] = v
	}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Sessions, public),
			interceptors.RestrictionUnary(deps.Gate),
			interceptors.AuditUnary(deps.Audit, deps.SkipAuditMethods),
		),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	return s, hs
}
