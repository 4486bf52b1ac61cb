package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
)

func dialLive(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/live" + query
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receiveLive(t *testing.T, conn *websocket.Conn) LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg LiveMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

// publishUntilReceived republishes until the subscriber is attached, since
// the handshake and the subscription race the first publish.
func publishUntilReceived(t *testing.T, feed *changefeed.MemoryFeed, conn *websocket.Conn, c changefeed.Change) LiveMessage {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			_ = feed.Publish(ctx, c)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return receiveLive(t, conn)
}

func TestAdminLiveStreamsChanges(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	srv := httptest.NewServer(http.HandlerFunc(NewAdminLiveHandler(feed, nil).Stream))
	defer srv.Close()

	conn := dialLive(t, srv, "")
	msg := publishUntilReceived(t, feed, conn, changefeed.Change{Collection: changefeed.Appointments, ID: "a1", Op: changefeed.OpCreated})
	assert.Equal(t, "change", msg.Type)
	require.NotNil(t, msg.Change)
	assert.Equal(t, "a1", msg.Change.ID)
	assert.Equal(t, changefeed.OpCreated, msg.Change.Op)
}

func TestAdminLiveFiltersCollection(t *testing.T) {
	feed := changefeed.NewMemoryFeed()
	h := NewAdminLiveHandler(feed, nil)
	h.heartbeat = time.Hour
	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	conn := dialLive(t, srv, "?collection=doctors")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			_ = feed.Publish(ctx, changefeed.Change{Collection: changefeed.Appointments, ID: "skip"})
			_ = feed.Publish(ctx, changefeed.Change{Collection: changefeed.Doctors, ID: "d1"})
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	msg := receiveLive(t, conn)
	require.NotNil(t, msg.Change)
	assert.Equal(t, changefeed.Doctors, msg.Change.Collection)
	assert.Equal(t, "d1", msg.Change.ID)
}
