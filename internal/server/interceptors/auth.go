package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"classtrack/backend/internal/security"
	"classtrack/backend/internal/session/domain"
	"classtrack/backend/internal/tenancy"
)

const bearerPrefix = "bearer "

// Every authentication failure surfaces as this one message so callers cannot
// distinguish bad signature, expired token, revoked session, or unknown token.
const authFailureMessage = "not authenticated"

// SessionResolver resolves a raw token to verified claims and a live session,
// or (nil, nil) for any failure.
type SessionResolver interface {
	ExtractSession(ctx context.Context, token string) (*security.Claims, *domain.Session)
	Touch(ctx context.Context, tokenID string)
}

// AuthUnary returns a unary server interceptor that resolves the Bearer token
// to a live session and binds the caller's tenant and identity into the
// request context. publicMethods lists full method names served without a
// token (health checks, login).
func AuthUnary(sessions SessionResolver, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, authFailureMessage)
		}
		claims, sess := sessions.ExtractSession(ctx, token)
		if claims == nil || sess == nil {
			return nil, status.Error(codes.Unauthenticated, authFailureMessage)
		}

		ctx = tenancy.With(ctx, sess.TenantID)
		ctx = WithIdentity(ctx, sess.UserID, sess.Role, sess.TokenID)

		// Activity tracking must not add latency to the request.
		go sessions.Touch(context.WithoutCancel(ctx), sess.TokenID)

		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
