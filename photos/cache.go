// Package photos serves rep photo URLs by name from a spreadsheet export,
// keeping the parsed directory in memory for a fixed time-to-live.
package photos

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/grtshw/lead-dispatch/sheets"
)

// DefaultTTL is how long a loaded directory is served before it is refetched.
const DefaultTTL = 10 * time.Minute

// Source returns the raw CSV text of the photo directory.
type Source func(ctx context.Context) (string, error)

// HTTPSource downloads the directory with f. It returns nil when url is empty,
// which leaves the cache disabled.
func HTTPSource(f *sheets.Fetcher, url string) Source {
	if url == "" {
		return nil
	}
	return func(ctx context.Context) (string, error) {
		return f.Text(ctx, url)
	}
}

// RefreshEvent describes one attempt to reload the directory.
type RefreshEvent struct {
	Entries  int
	Duration time.Duration
	Err      error
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Enabled     bool      `json:"enabled"`
	Entries     int       `json:"entries"`
	PopulatedAt time.Time `json:"populated_at"`
	Stale       bool      `json:"stale"`
	TTLSeconds  float64   `json:"ttl_seconds"`
	Refreshes   int       `json:"refreshes"`
	Failures    int       `json:"failures"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSplitter sets how directory lines are split into cells.
func WithSplitter(split Splitter) Option {
	return func(c *Cache) {
		if split != nil {
			c.build = func(text string) map[string]string { return BuildIndex(text, split) }
		}
	}
}

// WithNaiveParsing indexes the directory with BuildNaiveIndex.
func WithNaiveParsing() Option {
	return func(c *Cache) {
		c.build = BuildNaiveIndex
	}
}

// WithRefreshHook is called after every refresh attempt.
func WithRefreshHook(fn func(RefreshEvent)) Option {
	return func(c *Cache) {
		c.onRefresh = fn
	}
}

// Cache holds one directory snapshot at a time. Concurrent callers that find the
// snapshot stale share a single in-flight refresh.
type Cache struct {
	source    Source
	ttl       time.Duration
	now       func() time.Time
	build     func(text string) map[string]string
	onRefresh func(RefreshEvent)

	group singleflight.Group

	mu          sync.RWMutex
	index       map[string]string
	populatedAt time.Time
	refreshes   int
	failures    int
}

// New returns an empty cache reading from source. A nil source disables lookups.
func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
		build: func(text string) map[string]string {
			return BuildIndex(text, sheets.SplitRow)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the cache has a source.
func (c *Cache) Enabled() bool {
	return c.source != nil
}

// Lookup returns the photo URL for name. It reports false when the name is blank,
// the cache is disabled or the directory has no entry. A failed refresh returns
// the error and keeps the previous snapshot for the next attempt. If ctx ends while
// a refresh is running, Lookup returns ctx.Err() and the refresh carries on for
// the other callers.
func (c *Cache) Lookup(ctx context.Context, name string) (string, bool, error) {
	if strings.TrimSpace(name) == "" || c.source == nil {
		return "", false, nil
	}

	index, err := c.load(ctx)
	if err != nil {
		return "", false, err
	}

	url, ok := index[Normalize(name)]
	return url, ok, nil
}

// Warm loads the directory if it has never been loaded or is stale.
func (c *Cache) Warm(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	_, err := c.load(ctx)
	return err
}

// Stats returns counters and the age of the current snapshot.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Enabled:     c.source != nil,
		Entries:     len(c.index),
		PopulatedAt: c.populatedAt,
		Stale:       !c.freshLocked(),
		TTLSeconds:  c.ttl.Seconds(),
		Refreshes:   c.refreshes,
		Failures:    c.failures,
	}
}

func (c *Cache) load(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	index, fresh := c.index, c.freshLocked()
	c.mu.RUnlock()
	if fresh {
		return index, nil
	}

	// The refresh outlives any single caller; the source's own timeout bounds it.
	ch := c.group.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]string), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh replaces the snapshot. It re-checks freshness so a caller that queued
// behind a finished refresh does not fetch again.
func (c *Cache) refresh(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	index, fresh := c.index, c.freshLocked()
	c.mu.RUnlock()
	if fresh {
		return index, nil
	}

	start := c.now()
	text, err := c.source(ctx)
	if err != nil {
		c.mu.Lock()
		c.failures++
		c.mu.Unlock()

		log.WithError(err).Warn("[Photos] Directory refresh failed")
		c.report(RefreshEvent{Duration: c.now().Sub(start), Err: err})
		return nil, fmt.Errorf("photos: refresh directory: %w", err)
	}

	index = c.build(text)

	c.mu.Lock()
	c.index = index
	c.populatedAt = c.now()
	c.refreshes++
	c.mu.Unlock()

	log.WithField("entries", len(index)).Info("[Photos] Directory refreshed")
	c.report(RefreshEvent{Entries: len(index), Duration: c.now().Sub(start)})
	return index, nil
}

func (c *Cache) freshLocked() bool {
	return c.index != nil && c.now().Sub(c.populatedAt) <= c.ttl
}

func (c *Cache) report(ev RefreshEvent) {
	if c.onRefresh != nil {
		c.onRefresh(ev)
	}
}
