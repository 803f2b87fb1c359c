package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	tb := NewTokenBucketWithClock(1, 2, clk.Now)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clk.t = clk.t.Add(1500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestFixedWindowCounter(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	fw := NewFixedWindowCounterWithClock(2, time.Minute, clk.Now)

	assert.True(t, fw.Allow())
	assert.True(t, fw.Allow())
	assert.False(t, fw.Allow())

	clk.t = clk.t.Add(61 * time.Second)
	assert.True(t, fw.Allow())
}

func TestKeyedLimiter_IsolatesKeys(t *testing.T) {
	k, err := NewKeyedLimiter(10, func() RateLimiter {
		return NewFixedWindowCounter(1, time.Hour)
	})
	require.NoError(t, err)

	assert.True(t, k.AllowKey("alice"))
	assert.False(t, k.AllowKey("alice"))
	assert.True(t, k.AllowKey("bob"))
}
