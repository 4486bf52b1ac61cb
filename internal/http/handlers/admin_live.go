package handlers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Subscriber opens a change stream that ends when ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan changefeed.Change, error)
}

// LiveMessage is what the dashboard socket receives.
type LiveMessage struct {
	Type   string             `json:"type"`
	Change *changefeed.Change `json:"change,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// AdminLiveHandler streams change events to the dashboard so its views refresh
// without polling.
type AdminLiveHandler struct {
	feed      Subscriber
	heartbeat time.Duration
	logger    *logging.Logger
}

func NewAdminLiveHandler(feed Subscriber, logger *logging.Logger) *AdminLiveHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminLiveHandler{feed: feed, heartbeat: 30 * time.Second, logger: logger}
}

// Stream handles GET /admin/live. An optional ?collection= narrows the stream.
func (h *AdminLiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	// Lift the server's read/write timeouts; the stream outlives any single response.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
	websocket.Handler(h.serve).ServeHTTP(w, r)
}

func (h *AdminLiveHandler) serve(conn *websocket.Conn) {
	req := conn.Request()
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	changes, err := h.feed.Subscribe(ctx)
	if err != nil {
		h.logger.Error("live feed subscribe failed", "error", err)
		_ = websocket.JSON.Send(conn, LiveMessage{Type: "error", Error: "live updates unavailable"})
		return
	}

	// The dashboard never sends anything meaningful; a read error means it went away.
	go func() {
		defer cancel()
		var discard string
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	filter := changefeed.Collection(req.URL.Query().Get("collection"))
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	h.logger.Debug("live feed connected", "collection", filter)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := websocket.JSON.Send(conn, LiveMessage{Type: "ping"}); err != nil {
				return
			}
		case c, ok := <-changes:
			if !ok {
				return
			}
			if filter != "" && c.Collection != filter {
				continue
			}
			if err := websocket.JSON.Send(conn, LiveMessage{Type: "change", Change: &c}); err != nil {
				return
			}
		}
	}
}
