package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noJitter() time.Duration { return 0 }

func TestBackoff_DoublesFromOneSecond(t *testing.T) {
	b := NewBackoff(5, 60*time.Second)
	b.Jitter = noJitter

	var waits []time.Duration
	for i := 0; i < 4; i++ {
		wait, ok := b.RateLimited(0)
		require.True(t, ok)
		assert.Equal(t, StateWaiting, b.State())
		waits = append(waits, wait)
		b.Resume()
	}
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, waits)
	assert.Equal(t, 5, b.Attempt())
}

func TestBackoff_ResetHintWinsWhenLarger(t *testing.T) {
	b := NewBackoff(3, 60*time.Second)
	b.Jitter = noJitter

	wait, ok := b.RateLimited(5 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)
}

func TestBackoff_CapsAtMaxWait(t *testing.T) {
	b := NewBackoff(3, 60*time.Second)

	wait, ok := b.RateLimited(10 * time.Minute)
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, wait)
}

func TestBackoff_JitterStaysUnderOneSecond(t *testing.T) {
	b := NewBackoff(3, 60*time.Second)

	_, ok := b.RateLimited(0)
	require.True(t, ok)
	b.Resume()
	wait, ok := b.RateLimited(0)
	require.True(t, ok)
	assert.GreaterOrEqual(t, wait, 2*time.Second)
	assert.Less(t, wait, 3*time.Second)
}

func TestBackoff_ExhaustsAfterMaxAttempts(t *testing.T) {
	b := NewBackoff(3, 60*time.Second)
	b.Jitter = noJitter

	for i := 0; i < 2; i++ {
		_, ok := b.RateLimited(0)
		require.True(t, ok)
		b.Resume()
	}
	wait, ok := b.RateLimited(0)
	assert.False(t, ok)
	assert.Zero(t, wait)
	assert.Equal(t, StateExhausted, b.State())
	assert.Equal(t, 3, b.Attempt())

	// no transitions out of a terminal state
	_, ok = b.RateLimited(0)
	assert.False(t, ok)
	b.Resume()
	assert.Equal(t, StateExhausted, b.State())
}

func TestBackoff_Succeed(t *testing.T) {
	b := NewBackoff(0, 0)
	assert.Equal(t, defaultMaxAttempts, b.MaxAttempts)
	assert.Equal(t, defaultMaxWait, b.MaxWait)
	assert.Equal(t, StateAttempting, b.State())
	b.Succeed()
	assert.Equal(t, StateSucceeded, b.State())
	assert.Equal(t, "succeeded", b.State().String())
}

func TestTimerSleeper_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DefaultSleeper.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, DefaultSleeper.Sleep(context.Background(), 0))
}
