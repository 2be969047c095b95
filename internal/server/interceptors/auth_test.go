package interceptors

import (
	"context"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"classtrack/backend/internal/security"
	"classtrack/backend/internal/session/domain"
	"classtrack/backend/internal/tenancy"
)

// fakeResolver resolves one known token to a fixed claims/session pair.
type fakeResolver struct {
	token   string
	claims  *security.Claims
	session *domain.Session

	mu      sync.Mutex
	touched []string
}

func (f *fakeResolver) ExtractSession(ctx context.Context, token string) (*security.Claims, *domain.Session) {
	if token != f.token {
		return nil, nil
	}
	return f.claims, f.session
}

func (f *fakeResolver) Touch(ctx context.Context, tokenID string) {
	f.mu.Lock()
	f.touched = append(f.touched, tokenID)
	f.mu.Unlock()
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		token:  "valid-token",
		claims: &security.Claims{},
		session: &domain.Session{
			TokenID: "jti-1", UserID: "user-1", TenantID: "tenant-a", Role: "teacher",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

func bearerCtx(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("authorization", "Bearer "+token))
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	interceptor := AuthUnary(newFakeResolver(), map[string]bool{
		"/test.Service/PublicMethod": true,
	})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}
	resp, err := interceptor(context.Background(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/test.Service/PublicMethod"}, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuthUnary_ValidTokenBindsTenantAndIdentity(t *testing.T) {
	resolver := newFakeResolver()
	interceptor := AuthUnary(resolver, nil)

	var gotTenant, gotUser, gotRole, gotTokenID string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		gotTenant, _ = tenancy.Current(ctx)
		gotUser, _ = GetUserID(ctx)
		gotRole, _ = GetRole(ctx)
		gotTokenID, _ = GetTokenID(ctx)
		return "success", nil
	}
	_, err := interceptor(bearerCtx("valid-token"), "request",
		&grpc.UnaryServerInfo{FullMethod: "/test.Service/ProtectedMethod"}, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if gotTenant != "tenant-a" || gotUser != "user-1" || gotRole != "teacher" || gotTokenID != "jti-1" {
		t.Errorf("bound identity = (%s, %s, %s, %s)", gotTenant, gotUser, gotRole, gotTokenID)
	}
}

func TestAuthUnary_AllFailuresIndistinguishable(t *testing.T) {
	resolver := newFakeResolver()
	interceptor := AuthUnary(resolver, nil)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler must not run")
		return nil, nil
	}

	cases := map[string]context.Context{
		"no metadata":      context.Background(),
		"no header":        metadata.NewIncomingContext(context.Background(), metadata.Pairs()),
		"malformed header": metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Token abc")),
		"unknown token":    bearerCtx("some-other-token"),
	}
	var messages []string
	for name, ctx := range cases {
		_, err := interceptor(ctx, "request",
			&grpc.UnaryServerInfo{FullMethod: "/test.Service/ProtectedMethod"}, handler)
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.Unauthenticated {
			t.Fatalf("%s: err = %v, want Unauthenticated", name, err)
		}
		messages = append(messages, st.Message())
	}
	for _, m := range messages {
		if m != messages[0] {
			t.Fatalf("failure messages differ: %q vs %q", m, messages[0])
		}
	}
}

func TestAuthUnary_TouchesSession(t *testing.T) {
	resolver := newFakeResolver()
	interceptor := AuthUnary(resolver, nil)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "success", nil
	}
	if _, err := interceptor(bearerCtx("valid-token"), "request",
		&grpc.UnaryServerInfo{FullMethod: "/test.Service/ProtectedMethod"}, handler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}

	// Touch runs on its own goroutine.
	deadline := time.Now().Add(time.Second)
	for {
		resolver.mu.Lock()
		n := len(resolver.touched)
		resolver.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session was never touched")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER  abc123 ", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("authorization", tc.header))
		if got := extractBearer(ctx); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
