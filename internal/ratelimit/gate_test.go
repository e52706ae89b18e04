package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartable-app/cartable/pkg/errors"
)

func TestGate_AdmitsUpToCeiling(t *testing.T) {
	g := NewGate(3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Acquire(ctx))
	}

	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := g.Acquire(blocked)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))

	g.Release()
	require.NoError(t, g.Acquire(ctx))
}

func TestGate_AppliesPacingDelay(t *testing.T) {
	delay := 80 * time.Millisecond
	g := NewGate(1, delay)

	start := time.Now()
	require.NoError(t, g.Acquire(context.Background()))
	g.Release()

	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestGate_SetDelayAppliesToNextAdmission(t *testing.T) {
	g := NewGate(1, 300*time.Millisecond)
	g.SetDelay(0)

	start := time.Now()
	require.NoError(t, g.Acquire(context.Background()))
	g.Release()
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// Negative values are ignored.
	g.SetDelay(-time.Second)
	assert.Equal(t, time.Duration(0), g.pacing())
}

func TestGate_CancelDuringDelayReleasesSlot(t *testing.T) {
	g := NewGate(1, 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := g.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))

	// The slot must be reusable immediately.
	ok, cancelOK := context.WithTimeout(context.Background(), time.Second)
	defer cancelOK()
	require.NoError(t, g.Acquire(ok))
	g.Release()
}

func TestGate_DoReleasesOnError(t *testing.T) {
	g := NewGate(1, 0)
	want := errors.ErrUsage("boom")

	err := g.Do(context.Background(), func(context.Context) error { return want })
	assert.Equal(t, want, err)

	require.NoError(t, g.Acquire(context.Background()))
	g.Release()
}

func TestGate_ObserversFire(t *testing.T) {
	var waits int
	depth := &fakeGauge{}
	g := NewGate(2, 0,
		WithWaitObserver(func(time.Duration) { waits++ }),
		WithDepthGauge(depth),
	)

	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, 1, waits)
	assert.Equal(t, 1, depth.value)

	g.Release()
	assert.Equal(t, 0, depth.value)
}

type fakeGauge struct{ value int }

func (f *fakeGauge) Inc() { f.value++ }
func (f *fakeGauge) Dec() { f.value-- }
