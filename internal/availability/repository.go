package availability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository stores rules and exceptions.
type Repository interface {
	ListRules(ctx context.Context, doctorID string) ([]*Rule, error)
	GetRule(ctx context.Context, id string) (*Rule, error)
	CreateRule(ctx context.Context, r *Rule) error
	UpdateRule(ctx context.Context, r *Rule) error
	DeleteRule(ctx context.Context, id string) error

	ListExceptions(ctx context.Context, doctorID string) ([]*Exception, error)
	GetException(ctx context.Context, id string) (*Exception, error)
	CreateException(ctx context.Context, e *Exception) error
	UpdateException(ctx context.Context, e *Exception) error
	DeleteException(ctx context.Context, id string) error
}

// InMemoryRepository keeps rules and exceptions in maps.
type InMemoryRepository struct {
	mu         sync.RWMutex
	rules      map[string]*Rule
	exceptions map[string]*Exception
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		rules:      make(map[string]*Rule),
		exceptions: make(map[string]*Exception),
	}
}

func (m *InMemoryRepository) ListRules(_ context.Context, doctorID string) ([]*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Rule{}
	for _, r := range m.rules {
		if r.DoctorID == doctorID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *InMemoryRepository) GetRule(_ context.Context, id string) (*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *InMemoryRepository) CreateRule(_ context.Context, r *Rule) error {
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	m.mu.Lock()
	m.rules[r.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *InMemoryRepository) UpdateRule(_ context.Context, r *Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rules[r.ID]
	if !ok {
		return ErrRuleNotFound
	}
	r.DoctorID = existing.DoctorID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	m.rules[r.ID] = &cp
	return nil
}

func (m *InMemoryRepository) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

// DeleteRulesByDoctor is used by the in-memory doctor deletion cascade.
func (m *InMemoryRepository) DeleteRulesByDoctor(_ context.Context, doctorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rules {
		if r.DoctorID == doctorID {
			delete(m.rules, id)
			n++
		}
	}
	return n, nil
}

func (m *InMemoryRepository) ListExceptions(_ context.Context, doctorID string) ([]*Exception, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Exception{}
	for _, e := range m.exceptions {
		if e.DoctorID == doctorID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *InMemoryRepository) GetException(_ context.Context, id string) (*Exception, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exceptions[id]
	if !ok {
		return nil, ErrExceptionNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *InMemoryRepository) CreateException(_ context.Context, e *Exception) error {
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	m.mu.Lock()
	m.exceptions[e.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *InMemoryRepository) UpdateException(_ context.Context, e *Exception) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.exceptions[e.ID]
	if !ok {
		return ErrExceptionNotFound
	}
	e.DoctorID = existing.DoctorID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	m.exceptions[e.ID] = &cp
	return nil
}

func (m *InMemoryRepository) DeleteException(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exceptions[id]; !ok {
		return ErrExceptionNotFound
	}
	delete(m.exceptions, id)
	return nil
}

// DeleteExceptionsByDoctor is used by the in-memory doctor deletion cascade.
func (m *InMemoryRepository) DeleteExceptionsByDoctor(_ context.Context, doctorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.exceptions {
		if e.DoctorID == doctorID {
			delete(m.exceptions, id)
			n++
		}
	}
	return n, nil
}

var _ Repository = (*InMemoryRepository)(nil)
