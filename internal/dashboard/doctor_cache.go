// Package dashboard holds read models used by the admin views.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// DoctorLoader reads a doctor from the source of truth.
type DoctorLoader interface {
	Get(ctx context.Context, id string) (*doctors.Doctor, error)
}

// Subscriber opens a change stream that ends when ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan changefeed.Change, error)
}

type cacheEntry struct {
	doctor  *doctors.Doctor
	missing bool
	expires time.Time
}

// DoctorCache is a read-through cache of doctors for list enrichment. Entries
// are filled on miss and dropped when the change feed reports the doctor
// changed, with a TTL as a backstop for missed notifications.
type DoctorCache struct {
	loader DoctorLoader
	ttl    time.Duration
	now    func() time.Time
	logger *logging.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewDoctorCache(loader DoctorLoader, ttl time.Duration, logger *logging.Logger) *DoctorCache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DoctorCache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the doctor, loading it on a miss. Concurrent misses for one id
// share a single load.
func (c *DoctorCache) Get(ctx context.Context, id string) (*doctors.Doctor, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		if e.missing {
			return nil, doctors.ErrDoctorNotFound
		}
		return e.doctor, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		d, err := c.loader.Get(ctx, id)
		switch {
		case errors.Is(err, doctors.ErrDoctorNotFound):
			c.store(id, cacheEntry{missing: true})
			return nil, err
		case err != nil:
			return nil, err
		}
		c.store(id, cacheEntry{doctor: d})
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*doctors.Doctor), nil
}

func (c *DoctorCache) store(id string, e cacheEntry) {
	e.expires = c.now().Add(c.ttl)
	c.mu.Lock()
	c.entries[id] = e
	c.mu.Unlock()
}

// DoctorName returns the display name, or "" when the doctor cannot be loaded.
func (c *DoctorCache) DoctorName(ctx context.Context, id string) string {
	d, err := c.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, doctors.ErrDoctorNotFound) {
			c.logger.Warn("doctor cache load failed", "error", err, "doctor_id", id)
		}
		return ""
	}
	return d.FullName()
}

func (c *DoctorCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Len is the number of cached entries, including negative ones.
func (c *DoctorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Run drops entries as doctor changes arrive. It blocks until ctx is done.
func (c *DoctorCache) Run(ctx context.Context, feed Subscriber) error {
	changes, err := feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	for change := range changes {
		if change.Collection == changefeed.Doctors {
			c.Invalidate(change.ID)
		}
	}
	return ctx.Err()
}
