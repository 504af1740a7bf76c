package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_Target_WithinJitter(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		Base:   100 * time.Millisecond,
		Jitter: 50 * time.Millisecond,
	})

	for i := 0; i < 100; i++ {
		target := timing.Target()
		assert.GreaterOrEqual(t, target, 100*time.Millisecond)
		assert.Less(t, target, 150*time.Millisecond)
	}
}

func TestTimingDelay_WaitFrom_AdjustsForElapsedTime(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		Base: 100 * time.Millisecond,
	})
	startTime := time.Now()

	// Simulate some work already done
	time.Sleep(50 * time.Millisecond)

	err := timing.WaitFrom(context.Background(), startTime)

	elapsed := time.Since(startTime)
	assert.NoError(t, err)
	// Should total approximately 100ms (base), not 150ms
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 140*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AlreadyElapsed(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		Base: 10 * time.Millisecond,
	})

	startTime := time.Now().Add(-time.Second)
	before := time.Now()
	err := timing.WaitFrom(context.Background(), startTime)

	assert.NoError(t, err)
	assert.Less(t, time.Since(before), 5*time.Millisecond)
}

func TestHold_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := auth.Hold(ctx, 5*time.Second)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHold_NonPositiveDuration(t *testing.T) {
	assert.NoError(t, auth.Hold(context.Background(), 0))
	assert.NoError(t, auth.Hold(context.Background(), -time.Second))
}
