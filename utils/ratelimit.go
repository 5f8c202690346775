package utils

import (
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/pocketbase/pocketbase/core"
)

// RateLimiter is a sliding window limiter keyed by caller
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter allows limit requests per key within each window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

var (
	dashboardLimiter     *RateLimiter
	dashboardLimiterOnce sync.Once
)

// DashboardLimiter returns the shared limiter for dashboard endpoints
// (120 requests per minute per user) and starts its sweeper.
func DashboardLimiter() *RateLimiter {
	dashboardLimiterOnce.Do(func() {
		dashboardLimiter = NewRateLimiter(120, time.Minute)
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				dashboardLimiter.Sweep()
			}
		}()
		log.Infof("[RateLimit] Initialized with %d requests per %s", dashboardLimiter.limit, dashboardLimiter.window)
	})
	return dashboardLimiter
}

// Allow records a request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.inWindow(rl.requests[key], now)

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// Sweep drops keys with no requests inside the window
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, times := range rl.requests {
		valid := rl.inWindow(times, now)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

func (rl *RateLimiter) inWindow(times []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-rl.window)
	var valid []time.Time
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// RateLimitAuth is middleware for dashboard endpoints (tracks by user ID or IP)
func RateLimitAuth(e *core.RequestEvent) error {
	key := "ip:" + e.RealIP()
	if e.Auth != nil {
		key = "user:" + e.Auth.Id
	}

	limiter := DashboardLimiter()
	if !limiter.Allow(key) {
		log.Warnf("[RateLimit] Limit exceeded for %s", key)
		return TooManyRequestsResponse(e, limiter.window)
	}
	return e.Next()
}
