// Package ratelimit implements the outbound request gate: a bounded,
// FIFO-ordered admission ceiling with a mandatory pacing delay. The upstream
// service tolerates only a few simultaneous callers per client, so every
// request goes through the gate before touching the network.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cartable-app/cartable/pkg/errors"
)

// Gate admits at most a fixed number of concurrent requests and forces each
// admitted request to pause before proceeding. Waiters are served in arrival
// order.
type Gate struct {
	sem *semaphore.Weighted

	mu    sync.RWMutex
	delay time.Duration

	waitObserver func(time.Duration)
	depthGauge   interface {
		Inc()
		Dec()
	}
}

// Option configures a Gate.
type Option func(*Gate)

// WithWaitObserver registers a callback receiving each request's admission
// wait time.
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(g *Gate) { g.waitObserver = fn }
}

// WithDepthGauge registers a gauge tracking the number of held slots.
func WithDepthGauge(gauge interface {
	Inc()
	Dec()
}) Option {
	return func(g *Gate) { g.depthGauge = gauge }
}

// NewGate builds a gate admitting up to concurrency requests, each paced by
// delay after admission.
func NewGate(concurrency int64, delay time.Duration, opts ...Option) *Gate {
	if concurrency < 1 {
		concurrency = 1
	}
	g := &Gate{
		sem:   semaphore.NewWeighted(concurrency),
		delay: delay,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire blocks until a slot is free, then applies the pacing delay. On
// success the caller must call Release exactly once. Cancellation of ctx at
// any point, including during the pacing delay, returns a cancelled error
// without leaking the slot.
func (g *Gate) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return errors.ErrCancelled().WithCause(err)
	}
	if g.waitObserver != nil {
		g.waitObserver(time.Since(start))
	}
	if g.depthGauge != nil {
		g.depthGauge.Inc()
	}

	if delay := g.pacing(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			g.release()
			return errors.ErrCancelled().WithCause(ctx.Err())
		}
	}
	return nil
}

// SetDelay changes the pacing delay for subsequent admissions. Negative
// values are ignored. Concurrency is fixed for the gate's lifetime.
func (g *Gate) SetDelay(d time.Duration) {
	if d < 0 {
		return
	}
	g.mu.Lock()
	g.delay = d
	g.mu.Unlock()
}

func (g *Gate) pacing() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.delay
}

// Release returns a slot to the gate.
func (g *Gate) Release() {
	g.release()
}

func (g *Gate) release() {
	if g.depthGauge != nil {
		g.depthGauge.Dec()
	}
	g.sem.Release(1)
}

// Do runs fn under the gate.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}
