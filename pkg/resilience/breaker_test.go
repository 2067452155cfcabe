package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("redis", BreakerConfig{Failures: 3, Cooldown: time.Minute})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	}
	assert.Equal(t, BreakerClosed, b.State())

	// a success resets the streak
	require.NoError(t, b.Do(func() error { return nil }))
	for i := 0; i < 3; i++ {
		_ = b.Do(func() error { return boom })
	}
	assert.Equal(t, BreakerOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker("redis", BreakerConfig{Failures: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errors.New("down") })
	require.Equal(t, BreakerOpen, b.State())

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerProbing, b.State())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen, "only one probe at a time")

	b.Record(errors.New("still down"))
	assert.Equal(t, BreakerOpen, b.State())

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "probing", BreakerProbing.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
