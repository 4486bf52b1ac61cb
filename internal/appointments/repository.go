package appointments

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/doctors"
)

// Repository stores appointments. Book must be atomic with respect to the
// slot: of two concurrent bookings for one (doctor, instant) exactly one wins.
type Repository interface {
	HasActive(ctx context.Context, doctorID string, at time.Time) (bool, error)
	Book(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id string) (*Appointment, error)
	// Cancel moves any appointment to cancelled and returns it with its prior status.
	Cancel(ctx context.Context, id, reason string) (*Appointment, Status, error)
	SetStatus(ctx context.Context, id string, status Status) (*Appointment, Status, error)
	Delete(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]*Appointment, error)
	Recent(ctx context.Context, limit int) ([]*Appointment, error)
	// Upcoming lists a doctor's appointments on or after fromDate in their timezone.
	Upcoming(ctx context.Context, doctorID, fromDate string) ([]*Appointment, error)
}

// DoctorGuard runs fn while the doctor cannot be deleted.
// doctors.InMemoryRepository.Hold satisfies it.
type DoctorGuard func(ctx context.Context, doctorID string, fn func(*doctors.Doctor) error) error

// InMemoryRepository keeps appointments in a map guarded by a single mutex,
// which serializes bookings the way the database transaction does.
type InMemoryRepository struct {
	mu    sync.RWMutex
	appts map[string]*Appointment
	now   func() time.Time
	guard DoctorGuard
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appts: make(map[string]*Appointment),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *InMemoryRepository) conflict(doctorID string, at time.Time, exceptID string) bool {
	for _, a := range m.appts {
		if a.ID != exceptID && a.DoctorID == doctorID && a.Status != StatusCancelled && a.ScheduledAt.Equal(at) {
			return true
		}
	}
	return false
}

func (m *InMemoryRepository) HasActive(_ context.Context, doctorID string, at time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conflict(doctorID, at, ""), nil
}

// GuardDoctors makes Book re-check the doctor under the doctor store's lock.
// The doctor lock is always taken before the appointment lock, matching the
// order used by the deletion cascade.
func (m *InMemoryRepository) GuardDoctors(guard DoctorGuard) {
	m.guard = guard
}

func (m *InMemoryRepository) Book(ctx context.Context, a *Appointment) error {
	if m.guard == nil {
		return m.insert(a)
	}
	err := m.guard(ctx, a.DoctorID, func(d *doctors.Doctor) error {
		if !d.Active {
			return ErrDoctorInactive
		}
		return m.insert(a)
	})
	if errors.Is(err, doctors.ErrDoctorNotFound) {
		return ErrDoctorNotFound
	}
	return err
}

func (m *InMemoryRepository) insert(a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflict(a.DoctorID, a.ScheduledAt, "") {
		return ErrSlotTaken
	}
	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.RequestedAt.IsZero() {
		a.RequestedAt = now
	}
	a.localize()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *InMemoryRepository) Get(_ context.Context, id string) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *InMemoryRepository) Cancel(ctx context.Context, id, _ string) (*Appointment, Status, error) {
	return m.SetStatus(ctx, id, StatusCancelled)
}

func (m *InMemoryRepository) SetStatus(_ context.Context, id string, status Status) (*Appointment, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, "", ErrAppointmentNotFound
	}
	if status != StatusCancelled && a.Status == StatusCancelled && m.conflict(a.DoctorID, a.ScheduledAt, a.ID) {
		return nil, "", ErrSlotTaken
	}
	prev := a.Status
	a.Status = status
	now := m.now()
	if !now.After(a.UpdatedAt) {
		now = a.UpdatedAt.Add(time.Microsecond)
	}
	a.UpdatedAt = now
	cp := *a
	return &cp, prev, nil
}

func (m *InMemoryRepository) Delete(_ context.Context, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	delete(m.appts, id)
	return a, nil
}

// CancelByDoctor is used by the in-memory doctor deletion cascade.
func (m *InMemoryRepository) CancelByDoctor(_ context.Context, doctorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := m.now()
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status != StatusCancelled {
			a.Status = StatusCancelled
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *InMemoryRepository) snapshot(keep func(*Appointment) bool) []*Appointment {
	out := []*Appointment{}
	for _, a := range m.appts {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (m *InMemoryRepository) List(_ context.Context, f ListFilter) ([]*Appointment, error) {
	m.mu.RLock()
	out := m.snapshot(func(a *Appointment) bool {
		return (f.Status == "" || a.Status == f.Status) &&
			(f.DoctorID == "" || a.DoctorID == f.DoctorID) &&
			(f.Date == "" || a.AppointmentDate == f.Date)
	})
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return page(out, f.Offset, f.Limit), nil
}

func (m *InMemoryRepository) Recent(_ context.Context, limit int) ([]*Appointment, error) {
	m.mu.RLock()
	out := m.snapshot(func(*Appointment) bool { return true })
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, 0, limit), nil
}

func (m *InMemoryRepository) Upcoming(_ context.Context, doctorID, fromDate string) ([]*Appointment, error) {
	m.mu.RLock()
	out := m.snapshot(func(a *Appointment) bool {
		return a.DoctorID == doctorID && a.AppointmentDate >= fromDate
	})
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func page(list []*Appointment, offset, limit int) []*Appointment {
	if offset > len(list) {
		return []*Appointment{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

var _ Repository = (*InMemoryRepository)(nil)
