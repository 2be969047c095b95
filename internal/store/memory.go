package store

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and the seed command.
type Memory struct {
	mu   sync.Mutex
	docs map[string]map[string]*Document // collection -> id -> doc
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]*Document)}
}

func (m *Memory) get(collection, id string) *Document {
	c := m.docs[collection]
	if c == nil {
		return nil
	}
	return c[id]
}

func matches(doc *Document, f Filter) bool {
	for k, v := range f {
		if !reflect.DeepEqual(doc.Data[k], v) {
			return false
		}
	}
	return true
}

func copyDoc(d *Document) *Document {
	out := *d
	out.Data = make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		out.Data[k] = v
	}
	return &out
}

func (m *Memory) FindOne(ctx context.Context, tenantID, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.get(collection, id)
	if d == nil || d.DeletedAt != nil {
		return nil, nil
	}
	if tenantID != "" && d.TenantID != tenantID {
		return nil, nil
	}
	return copyDoc(d), nil
}

func (m *Memory) Find(ctx context.Context, tenantID, collection string, f Filter) ([]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Document
	for _, d := range m.docs[collection] {
		if d.DeletedAt != nil {
			continue
		}
		if tenantID != "" && d.TenantID != tenantID {
			continue
		}
		if !matches(d, f) {
			continue
		}
		out = append(out, copyDoc(d))
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, doc *Document) error {
	if doc.TenantID == "" {
		return ErrMissingTenant
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]*Document)
	}
	m.docs[collection][doc.ID] = copyDoc(doc)
	return nil
}

func (m *Memory) Update(ctx context.Context, tenantID, collection, id string, changes map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.get(collection, id)
	if d == nil || d.DeletedAt != nil || d.TenantID != tenantID {
		return false, nil
	}
	for k, v := range changes {
		d.Data[k] = v
	}
	d.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) UpdateMany(ctx context.Context, tenantID, collection string, f Filter, changes map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.docs[collection] {
		if d.DeletedAt != nil || d.TenantID != tenantID || !matches(d, f) {
			continue
		}
		for k, v := range changes {
			d.Data[k] = v
		}
		d.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (m *Memory) Delete(ctx context.Context, tenantID, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.get(collection, id)
	if d == nil || d.DeletedAt != nil || d.TenantID != tenantID {
		return false, nil
	}
	now := time.Now().UTC()
	d.DeletedAt = &now
	return true, nil
}

func (m *Memory) DeleteMany(ctx context.Context, tenantID, collection string, f Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, d := range m.docs[collection] {
		if d.DeletedAt != nil || d.TenantID != tenantID || !matches(d, f) {
			continue
		}
		d.DeletedAt = &now
		n++
	}
	return n, nil
}

func (m *Memory) Upsert(ctx context.Context, collection string, doc *Document) error {
	if doc.TenantID == "" {
		return ErrMissingTenant
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	existing := m.get(collection, doc.ID)
	if existing != nil && existing.TenantID != doc.TenantID {
		return ErrCrossTenantWrite
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.DeletedAt = nil
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]*Document)
	}
	m.docs[collection][doc.ID] = copyDoc(doc)
	return nil
}

func (m *Memory) CountActive(ctx context.Context, tenantID, collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.docs[collection] {
		if d.DeletedAt != nil {
			continue
		}
		if tenantID != "" && d.TenantID != tenantID {
			continue
		}
		n++
	}
	return n, nil
}
