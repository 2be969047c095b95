package interceptors

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"classtrack/backend/internal/audit"
	"classtrack/backend/internal/restriction"
	"classtrack/backend/internal/tenancy"
)

// WriteGate guards mutating calls for restricted tenants.
type WriteGate interface {
	AssertWriteAllowed(ctx context.Context, tenantID, module string) *restriction.Block
}

// RestrictionUnary returns a unary server interceptor that refuses mutations
// for restricted tenants. Reads, unauthenticated methods, and modules outside
// the restricted set pass through. A block is an expected business outcome
// and is reported as FailedPrecondition with upgrade context, not as an
// internal error.
func RestrictionUnary(gate WriteGate) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		mi := audit.ParseFullMethod(info.FullMethod)
		if !mi.Mutation {
			return handler(ctx, req)
		}
		tenantID, err := tenancy.Current(ctx)
		if err != nil {
			// Unauthenticated mutation paths are the auth interceptor's problem.
			return handler(ctx, req)
		}
		if block := gate.AssertWriteAllowed(ctx, tenantID, mi.Module); block != nil {
			return nil, status.Error(codes.FailedPrecondition, fmt.Sprintf(
				"plan restriction: %s writes are blocked on the %s plan (%d active entities); upgrade to continue",
				block.Module, block.Plan, block.ActiveEntityCount))
		}
		return handler(ctx, req)
	}
}
