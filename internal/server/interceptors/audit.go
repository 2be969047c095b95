package interceptors

import (
	"context"

	"google.golang.org/grpc"

	"classtrack/backend/internal/audit"
)

// MutationRecorder records state-changing calls.
type MutationRecorder interface {
	Mutation(ctx context.Context, module, action string, metadata map[string]any)
}

// AuditUnary returns a unary server interceptor that records every successful
// mutation by an authenticated caller. Reads, failed calls, and methods in
// skipMethods are not recorded. Recording is fire-and-forget through the
// audit logger, so it never adds failure modes to the RPC itself.
func AuditUnary(recorder MutationRecorder, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		mi := audit.ParseFullMethod(info.FullMethod)
		if !mi.Mutation {
			return resp, err
		}
		if _, ok := GetUserID(ctx); !ok {
			return resp, err
		}
		recorder.Mutation(ctx, mi.Module, mi.Action, map[string]any{
			"method": info.FullMethod,
		})
		return resp, err
	}
}
