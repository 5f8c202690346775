package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:a"))
	assert.False(t, rl.Allow("user:a"), "third request inside the window is rejected")
	assert.True(t, rl.Allow("user:b"), "keys are limited independently")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("user:a"), "window has slid past the first requests")
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("user:a")
	now = now.Add(30 * time.Second)
	rl.Allow("user:b")
	assert.Equal(t, 2, rl.Len())

	now = now.Add(45 * time.Second)
	rl.Sweep()
	assert.Equal(t, 1, rl.Len())

	now = now.Add(time.Minute)
	rl.Sweep()
	assert.Equal(t, 0, rl.Len())
}
