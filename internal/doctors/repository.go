package doctors

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for doctor storage
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	Get(ctx context.Context, id string) (*Doctor, error)
	List(ctx context.Context) ([]*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	SetActive(ctx context.Context, id string, active bool) (*Doctor, error)
	// DeleteCascade removes the doctor's rules and exceptions, cancels every
	// appointment of the doctor and deletes the doctor, all or nothing.
	DeleteCascade(ctx context.Context, id string) (*CascadeResult, error)
}

// DependentFunc removes or cancels the records one doctor owns in another store.
type DependentFunc func(ctx context.Context, doctorID string) (int64, error)

// InMemoryCascade wires the in-memory stores that a deletion must reach.
type InMemoryCascade struct {
	DeleteRules        DependentFunc
	DeleteExceptions   DependentFunc
	CancelAppointments DependentFunc
}

// InMemoryRepository keeps doctors in a map. Used for local runs and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	doctors map[string]*Doctor
	cascade InMemoryCascade
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(cascade InMemoryCascade) *InMemoryRepository {
	return &InMemoryRepository{
		doctors: make(map[string]*Doctor),
		cascade: cascade,
	}
}

func (r *InMemoryRepository) Create(_ context.Context, d *Doctor) error {
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	cp := *d
	r.mu.Lock()
	r.doctors[d.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	out := make([]*Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		cp := *d
		out = append(out, &cp)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.doctors[d.ID]
	if !ok {
		return ErrDoctorNotFound
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *InMemoryRepository) SetActive(_ context.Context, id string, active bool) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d.Active = active
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	return &cp, nil
}

// Hold runs fn with a copy of the doctor while holding the read lock, so a
// DeleteCascade started meanwhile waits for fn to return.
func (r *InMemoryRepository) Hold(_ context.Context, id string, fn func(*Doctor) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return ErrDoctorNotFound
	}
	cp := *d
	return fn(&cp)
}

// DeleteCascade holds the doctor lock for the whole cascade so no reader sees
// a half-deleted doctor.
func (r *InMemoryRepository) DeleteCascade(ctx context.Context, id string) (*CascadeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[id]; !ok {
		return nil, ErrDoctorNotFound
	}
	res := &CascadeResult{DoctorID: id}
	var err error
	if r.cascade.DeleteRules != nil {
		if res.RulesDeleted, err = r.cascade.DeleteRules(ctx, id); err != nil {
			return nil, err
		}
	}
	if r.cascade.DeleteExceptions != nil {
		if res.ExceptionsDeleted, err = r.cascade.DeleteExceptions(ctx, id); err != nil {
			return nil, err
		}
	}
	if r.cascade.CancelAppointments != nil {
		if res.AppointmentsCancelled, err = r.cascade.CancelAppointments(ctx, id); err != nil {
			return nil, err
		}
	}
	delete(r.doctors, id)
	return res, nil
}

var _ Repository = (*InMemoryRepository)(nil)
