package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"classtrack/backend/internal/session/domain"
)

// MemoryRepository is an in-memory session repository for tests and the seed command.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) GetByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.TokenID] = &cp
	return nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, tokenID, tenantID, reason, revokedBy string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok || s.TenantID != tenantID || s.IsRevoked {
		return false, nil
	}
	s.IsRevoked = true
	s.RevokedAt = &at
	s.RevokedReason = reason
	s.RevokedBy = revokedBy
	return true, nil
}

func (r *MemoryRepository) RevokeAllByUser(ctx context.Context, userID, tenantID, reason, revokedBy, exceptTokenID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID != userID || s.TenantID != tenantID || s.IsRevoked {
			continue
		}
		if exceptTokenID != "" && s.TokenID == exceptTokenID {
			continue
		}
		s.IsRevoked = true
		s.RevokedAt = &at
		s.RevokedReason = reason
		s.RevokedBy = revokedBy
		n++
	}
	return n, nil
}

func (r *MemoryRepository) Touch(ctx context.Context, tokenID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenID]; ok {
		s.LastActiveAt = &at
	}
	return nil
}
