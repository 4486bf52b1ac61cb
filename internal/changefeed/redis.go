package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// RedisFeed carries changes over a Redis pub/sub channel so every API replica
// sees writes made by the others.
type RedisFeed struct {
	client  *redis.Client
	channel string
	logger  *logging.Logger
}

func NewRedisFeed(client *redis.Client, channel string, logger *logging.Logger) *RedisFeed {
	if client == nil {
		panic("changefeed: redis client required")
	}
	if channel == "" {
		channel = "clinic:changes"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisFeed{client: client, channel: channel, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("changefeed: marshal: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("changefeed: publish: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning, so
// changes published afterwards are not missed.
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Change, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("changefeed: subscribe: %w", err)
	}

	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					f.logger.Warn("changefeed: dropping malformed message", "error", err)
					continue
				}
				select {
				case out <- change:
				default:
					f.logger.Warn("changefeed: subscriber lagging, dropping change", "collection", change.Collection, "id", change.ID)
				}
			}
		}
	}()
	return out, nil
}

var _ Feed = (*RedisFeed)(nil)
