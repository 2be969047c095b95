package rbac

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"classtrack/backend/internal/server/interceptors"
)

func TestRequireAdmin_Admin(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "user-1", RoleAdmin, "jti-1")
	userID, err := RequireAdmin(ctx)
	if err != nil {
		t.Fatalf("RequireAdmin: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("user_id = %q, want user-1", userID)
	}
}

func TestRequireAdmin_Owner(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "user-2", RoleOwner, "jti-2")
	if _, err := RequireAdmin(ctx); err != nil {
		t.Fatalf("RequireAdmin: %v", err)
	}
}

func TestRequireAdmin_TeacherDenied(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "user-3", RoleTeacher, "jti-3")
	_, err := RequireAdmin(ctx)
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.PermissionDenied {
		t.Fatalf("err = %v, want PermissionDenied", err)
	}
}

func TestRequireAdmin_Unauthenticated(t *testing.T) {
	_, err := RequireAdmin(context.Background())
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		t.Fatalf("err = %v, want Unauthenticated", err)
	}
}
