package transport

import (
	"context"
	"sync"
)

// canceller tracks the cancellation handles of every in-flight request so a
// logout can abort them all as a batch.
type canceller struct {
	mu     sync.Mutex
	seq    uint64
	active map[uint64]context.CancelFunc
}

func newCanceller() *canceller {
	return &canceller{active: make(map[uint64]context.CancelFunc)}
}

// track derives a cancellable context from ctx and registers its handle.
// The returned done func deregisters and releases the context; it must be
// called once the request finishes.
func (c *canceller) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.seq++
	id := c.seq
	c.active[id] = cancel
	c.mu.Unlock()

	return ctx, func() {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
		cancel()
	}
}

// cancelAll aborts every tracked request.
func (c *canceller) cancelAll() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.active))
	for id, cancel := range c.active {
		cancels = append(cancels, cancel)
		delete(c.active, id)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
