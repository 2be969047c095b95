// Package rbac holds the role guards shared by handlers and the data layer.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"classtrack/backend/internal/server/interceptors"
)

// Roles recognized by the guards.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// RequireAdmin ensures the caller is authenticated with role owner or admin.
// Returns the caller's user id on success; returns a gRPC error
// (Unauthenticated or PermissionDenied) on failure.
func RequireAdmin(ctx context.Context) (string, error) {
	userID, okUser := interceptors.GetUserID(ctx)
	role, okRole := interceptors.GetRole(ctx)
	if !okUser || userID == "" || !okRole {
		return "", status.Error(codes.Unauthenticated, "authenticated context required")
	}
	if role != RoleOwner && role != RoleAdmin {
		return "", status.Error(codes.PermissionDenied, "admin or owner role required")
	}
	return userID, nil
}

// SystemAuthorizer adapts RequireAdmin to the store's cross-tenant gate, so
// unscoped queries are only reachable by admin callers.
func SystemAuthorizer(ctx context.Context) (string, error) {
	return RequireAdmin(ctx)
}
