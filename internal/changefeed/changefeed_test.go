package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestRedisFeedRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := NewRedisFeed(client, "test:changes", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, Notify(ctx, feed, Doctors, "doc-1", "doc-1", OpUpdated))

	got := receive(t, ch)
	assert.Equal(t, Doctors, got.Collection)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, OpUpdated, got.Op)
	assert.False(t, got.At.IsZero())
}

func TestRedisFeedSkipsMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := NewRedisFeed(client, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "clinic:changes", "not-json").Err())
	require.NoError(t, feed.Publish(ctx, Change{Collection: Appointments, ID: "a-1", Op: OpCreated}))

	got := receive(t, ch)
	assert.Equal(t, "a-1", got.ID)
}

func TestMemoryFeedClosesOnCancel(t *testing.T) {
	feed := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, Notify(context.Background(), feed, Appointments, "a-2", "doc-1", OpDeleted))
	got := receive(t, ch)
	assert.Equal(t, "doc-1", got.DoctorID)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestNotifyNilPublisher(t *testing.T) {
	assert.NoError(t, Notify(context.Background(), nil, Doctors, "x", "", OpDeleted))
}
