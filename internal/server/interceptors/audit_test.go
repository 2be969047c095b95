package interceptors

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
)

type recordedMutation struct {
	module string
	action string
}

type fakeRecorder struct {
	mutations []recordedMutation
}

func (r *fakeRecorder) Mutation(ctx context.Context, module, action string, metadata map[string]any) {
	r.mutations = append(r.mutations, recordedMutation{module: module, action: action})
}

func authedCtx() context.Context {
	return WithIdentity(context.Background(), "user-1", "teacher", "jti-1")
}

func TestAuditUnary_RecordsSuccessfulMutation(t *testing.T) {
	recorder := &fakeRecorder{}
	interceptor := AuditUnary(recorder, nil)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}

	_, err := interceptor(authedCtx(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.courses.v1.CoursesService/UpdateCourse"}, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(recorder.mutations) != 1 {
		t.Fatalf("mutations = %v, want one entry", recorder.mutations)
	}
	if m := recorder.mutations[0]; m.module != "courses" || m.action != "update" {
		t.Fatalf("recorded = %+v", m)
	}
}

func TestAuditUnary_SkipsReadsFailuresAndSkipList(t *testing.T) {
	recorder := &fakeRecorder{}
	interceptor := AuditUnary(recorder, map[string]bool{
		"/classtrack.schedules.v1.SchedulesService/CreateSchedule": true,
	})
	okHandler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}
	failHandler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}

	// Read.
	if _, err := interceptor(authedCtx(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.courses.v1.CoursesService/ListCourses"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	// Failed mutation.
	if _, err := interceptor(authedCtx(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.courses.v1.CoursesService/DeleteCourse"}, failHandler); err == nil {
		t.Fatal("expected handler error to propagate")
	}
	// Skip-listed mutation.
	if _, err := interceptor(authedCtx(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.schedules.v1.SchedulesService/CreateSchedule"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	// Unauthenticated mutation.
	if _, err := interceptor(context.Background(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/classtrack.courses.v1.CoursesService/CreateCourse"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}

	if len(recorder.mutations) != 0 {
		t.Fatalf("mutations = %v, want none", recorder.mutations)
	}
}
