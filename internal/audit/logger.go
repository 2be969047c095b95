// Package audit emits structured, non-blocking security and entity-mutation
// events. Persistence failures are swallowed and logged; they never abort or
// alter the outcome of the operation that triggered the entry.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classtrack/backend/internal/audit/domain"
	auditrepo "classtrack/backend/internal/audit/repository"
	"classtrack/backend/internal/tenancy"
)

// SentinelTenantID is used for events that occur outside any tenant context
// (e.g. failed logins, rejected writes without a binding).
const SentinelTenantID = "_system"

// writeTimeout bounds a single async persist so shutdown can drain in bounded
// time. Detached from the request context: request cancellation must not lose
// the entry.
const writeTimeout = 5 * time.Second

// ContextMeta extracts client IP and user agent from the request context
// (e.g. gRPC metadata or peer). Either may be empty.
type ContextMeta func(ctx context.Context) (ip, userAgent string)

// ActorResolver returns the acting user from the request context.
type ActorResolver func(ctx context.Context) domain.Actor

// Producer publishes entries to an external stream (e.g. Kafka) in addition to
// the repository. Optional.
type Producer interface {
	Publish(ctx context.Context, e *domain.Entry) error
}

// Logger builds normalized audit entries and persists them asynchronously.
type Logger struct {
	repo   auditrepo.Repository
	stream Producer
	log    *zap.SugaredLogger
	meta   ContextMeta
	actor  ActorResolver

	wg sync.WaitGroup
}

// NewLogger returns an audit Logger. stream may be nil (no fan-out); meta and
// actor may be nil (fields are then left empty).
func NewLogger(repo auditrepo.Repository, stream Producer, log *zap.SugaredLogger, meta ContextMeta, actor ActorResolver) *Logger {
	return &Logger{repo: repo, stream: stream, log: log, meta: meta, actor: actor}
}

// EntityCreated records the creation of a document in module with its snapshot.
func (l *Logger) EntityCreated(ctx context.Context, module, entityID string, snapshot map[string]any) {
	e := l.envelope(ctx, module, domain.ActionCreate)
	e.EntityID = entityID
	e.Snapshot = snapshot
	l.submit(e)
}

// EntityUpdated records an update with the caller-supplied ordered field diff.
func (l *Logger) EntityUpdated(ctx context.Context, module, entityID string, changes []domain.FieldChange) {
	e := l.envelope(ctx, module, domain.ActionUpdate)
	e.EntityID = entityID
	e.Changes = changes
	l.submit(e)
}

// EntityDeleted records a deletion with the last snapshot of the document.
func (l *Logger) EntityDeleted(ctx context.Context, module, entityID string, snapshot map[string]any) {
	e := l.envelope(ctx, module, domain.ActionDelete)
	e.EntityID = entityID
	e.Snapshot = snapshot
	l.submit(e)
}

// Mutation records a state-changing call that carries no entity-level detail.
// The audit interceptor uses it for mutations whose handlers do not emit
// richer entries themselves.
func (l *Logger) Mutation(ctx context.Context, module, action string, metadata map[string]any) {
	e := l.envelope(ctx, module, action)
	e.Metadata = metadata
	l.submit(e)
}

// AuthEvent records an authentication lifecycle event for the given tenant and
// actor. tenantID may be empty for failures before any tenant is known.
func (l *Logger) AuthEvent(ctx context.Context, tenantID, action string, actor domain.Actor, metadata map[string]any) {
	e := l.envelope(ctx, "auth", action)
	if tenantID != "" {
		e.TenantID = tenantID
	}
	e.Actor = actor
	e.Metadata = metadata
	l.submit(e)
}

// SecurityEvent records a suspicious or privileged action (cross-tenant write
// rejection, system-query use). Satisfies store.SecurityAuditor.
func (l *Logger) SecurityEvent(ctx context.Context, action string, metadata map[string]any) {
	e := l.envelope(ctx, "security", action)
	e.Metadata = metadata
	l.submit(e)
}

// Flush waits for in-flight entries, bounded by the given timeout. Called on
// shutdown so the last entries are not lost.
func (l *Logger) Flush(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		l.log.Warn("audit: flush timed out with entries in flight")
	}
}

func (l *Logger) envelope(ctx context.Context, module, action string) *domain.Entry {
	e := &domain.Entry{
		ID:         uuid.New().String(),
		TenantID:   SentinelTenantID,
		Module:     module,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
	if tenant, err := tenancy.Current(ctx); err == nil {
		e.TenantID = tenant
	}
	if l.meta != nil {
		e.IP, e.UserAgent = l.meta(ctx)
	}
	if l.actor != nil {
		e.Actor = l.actor(ctx)
	}
	return e
}

// submit persists (and streams) the entry on its own goroutine with a detached
// timeout context. Failures are logged, never propagated.
func (l *Logger) submit(e *domain.Entry) {
	if l.repo == nil {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := l.repo.Create(ctx, e); err != nil {
			l.log.Warnw("audit: failed to persist entry",
				"module", e.Module, "action", e.Action, "error", err)
		}
		if l.stream != nil {
			if err := l.stream.Publish(ctx, e); err != nil {
				l.log.Warnw("audit: failed to publish entry to stream",
					"module", e.Module, "action", e.Action, "error", err)
			}
		}
	}()
}
