package interceptors

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"classtrack/backend/internal/restriction"
	"classtrack/backend/internal/tenancy"
)

// fakeGate blocks the listed tenants for every restricted module.
type fakeGate struct {
	blocked map[string]bool
	calls   []string
}

func (g *fakeGate) AssertWriteAllowed(ctx context.Context, tenantID, module string) *restriction.Block {
	g.calls = append(g.calls, tenantID+":"+module)
	if g.blocked[tenantID] {
		return &restriction.Block{Restricted: true, Plan: "free", ActiveEntityCount: 20, Module: module}
	}
	return nil
}

func TestRestrictionUnary_BlocksMutationForRestrictedTenant(t *testing.T) {
	gate := &fakeGate{blocked: map[string]bool{"tenant-a": true}}
	interceptor := RestrictionUnary(gate)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler must not run")
		return nil, nil
	}

	ctx := tenancy.With(context.Background(), "tenant-a")
	_, err := interceptor(ctx, "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.attendance.v1.AttendanceService/CreateAttendance"}, handler)
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.FailedPrecondition {
		t.Fatalf("err = %v, want FailedPrecondition", err)
	}
}

func TestRestrictionUnary_AllowsReads(t *testing.T) {
	gate := &fakeGate{blocked: map[string]bool{"tenant-a": true}}
	interceptor := RestrictionUnary(gate)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}

	ctx := tenancy.With(context.Background(), "tenant-a")
	resp, err := interceptor(ctx, "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.attendance.v1.AttendanceService/ListAttendance"}, handler)
	if err != nil || resp != "success" {
		t.Fatalf("read blocked: (%v, %v)", resp, err)
	}
	if len(gate.calls) != 0 {
		t.Fatalf("gate consulted for a read: %v", gate.calls)
	}
}

func TestRestrictionUnary_AllowsMutationForUnrestrictedTenant(t *testing.T) {
	gate := &fakeGate{}
	interceptor := RestrictionUnary(gate)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}

	ctx := tenancy.With(context.Background(), "tenant-b")
	resp, err := interceptor(ctx, "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.payments.v1.PaymentsService/CreatePayment"}, handler)
	if err != nil || resp != "success" {
		t.Fatalf("mutation blocked: (%v, %v)", resp, err)
	}
	if len(gate.calls) != 1 || gate.calls[0] != "tenant-b:payments" {
		t.Fatalf("gate calls = %v", gate.calls)
	}
}

func TestRestrictionUnary_NoTenantPassesThrough(t *testing.T) {
	gate := &fakeGate{blocked: map[string]bool{"tenant-a": true}}
	interceptor := RestrictionUnary(gate)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}

	// The auth interceptor owns rejecting unauthenticated calls.
	resp, err := interceptor(context.Background(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.courses.v1.CoursesService/CreateCourse"}, handler)
	if err != nil || resp != "success" {
		t.Fatalf("pass-through failed: (%v, %v)", resp, err)
	}
}
