package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindowGate_Invalid(t *testing.T) {
	_, err := NewWindowGate(0, time.Second)
	assert.Error(t, err)

	_, err = NewWindowGate(3, 0)
	assert.Error(t, err)
}

// No sliding window may contain more than limit grants, even with many concurrent callers
func TestWindowGate_SlidingWindowCeiling(t *testing.T) {
	const (
		limit   = 3
		window  = 150 * time.Millisecond
		workers = 8
		perWork = 3
	)

	gate, err := NewWindowGate(limit, window)
	require.NoError(t, err)

	var grants []time.Time
	gate.OnGrant(func(ts time.Time) { grants = append(grants, ts) })

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				assert.NoError(t, gate.Wait(context.Background()))
			}
		}()
	}
	wg.Wait()

	require.Len(t, grants, workers*perWork)
	assert.Equal(t, int64(workers*perWork), gate.Granted())

	// grants are recorded under the lock, so they are already ordered
	for i := 0; i+limit < len(grants); i++ {
		gap := grants[i+limit].Sub(grants[i])
		assert.GreaterOrEqual(t, gap, window, "grants %d and %d are %s apart", i, i+limit, gap)
	}
}

func TestWindowGate_ContextCancel(t *testing.T) {
	gate, err := NewWindowGate(1, time.Hour)
	require.NoError(t, err)

	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err = gate.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), gate.Granted())
}

func TestWindowGate_Limit(t *testing.T) {
	gate, err := NewWindowGate(3, time.Second)
	require.NoError(t, err)

	n, w := gate.Limit()
	assert.Equal(t, 3, n)
	assert.Equal(t, time.Second, w)
}
