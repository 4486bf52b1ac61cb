package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
)

type countingLoader struct {
	repo  *doctors.InMemoryRepository
	calls int32
	err   error
}

func (l *countingLoader) Get(ctx context.Context, id string) (*doctors.Doctor, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.err != nil {
		return nil, l.err
	}
	return l.repo.Get(ctx, id)
}

func newLoader(t *testing.T) *countingLoader {
	t.Helper()
	repo := doctors.NewInMemoryRepository(doctors.InMemoryCascade{})
	require.NoError(t, repo.Create(context.Background(), &doctors.Doctor{ID: "d1", FirstName: "Elif", LastName: "Demir", Active: true}))
	return &countingLoader{repo: repo}
}

func TestDoctorCacheReadThrough(t *testing.T) {
	loader := newLoader(t)
	cache := NewDoctorCache(loader, time.Minute, nil)
	ctx := context.Background()

	assert.Equal(t, "Elif Demir", cache.DoctorName(ctx, "d1"))
	assert.Equal(t, "Elif Demir", cache.DoctorName(ctx, "d1"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))

	assert.Equal(t, "", cache.DoctorName(ctx, "ghost"))
	assert.Equal(t, "", cache.DoctorName(ctx, "ghost"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&loader.calls), "misses are cached too")
}

func TestDoctorCacheExpires(t *testing.T) {
	loader := newLoader(t)
	cache := NewDoctorCache(loader, time.Minute, nil)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background(), "d1")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loader.calls))
}

func TestDoctorCacheDoesNotCacheErrors(t *testing.T) {
	loader := newLoader(t)
	loader.err = errors.New("db down")
	cache := NewDoctorCache(loader, time.Minute, nil)

	_, err := cache.Get(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestDoctorCacheSharesConcurrentLoads(t *testing.T) {
	loader := newLoader(t)
	cache := NewDoctorCache(loader, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Get(context.Background(), "d1")
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&loader.calls), int32(20))
	assert.Equal(t, 1, cache.Len())
}

func TestDoctorCacheInvalidatedByFeed(t *testing.T) {
	loader := newLoader(t)
	cache := NewDoctorCache(loader, time.Hour, nil)
	feed := changefeed.NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- cache.Run(ctx, feed) }()

	assert.Equal(t, "Elif Demir", cache.DoctorName(ctx, "d1"))
	d, err := loader.repo.Get(ctx, "d1")
	require.NoError(t, err)
	d.LastName = "Kaya"
	require.NoError(t, loader.repo.Update(ctx, d))

	assert.Eventually(t, func() bool {
		_ = feed.Publish(ctx, changefeed.Change{Collection: changefeed.Doctors, ID: "d1", Op: changefeed.OpUpdated})
		return cache.DoctorName(ctx, "d1") == "Elif Kaya"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
