package changefeed

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// MemoryFeed fans changes out to in-process subscribers. Used when Redis is
// not configured and in tests. Slow subscribers drop changes rather than block writers.
type MemoryFeed struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Change
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan Change)}
}

func (f *MemoryFeed) Publish(_ context.Context, change Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, subscriberBuffer)
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

var _ Feed = (*MemoryFeed)(nil)
