// Package bundle memoizes historical indicator inputs. Recomputing indicator
// series dominates evaluation cost, and most callers request one of a small
// set of (iterations, candlesPerPull) shapes, so the first fetch for a
// (category, symbol, interval) triple speculatively warms the sibling shapes
// in the background.
package bundle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/marketdata"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Key identifies one cached bundle.
type Key struct {
	Category       string
	Symbol         string
	Interval       types.Interval
	Iterations     int
	CandlesPerPull int
}

// String renders the key for logging and singleflight grouping.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", k.Category, k.Symbol, k.Interval, k.Iterations, k.CandlesPerPull)
}

// triple is the warming scope: variants share everything but the shape.
type triple struct {
	Category string
	Symbol   string
	Interval types.Interval
}

func (k Key) triple() triple {
	return triple{Category: k.Category, Symbol: k.Symbol, Interval: k.Interval}
}

// Variant is one (iterations, candlesPerPull) shape to warm on first touch.
type Variant struct {
	Iterations     int
	CandlesPerPull int
}

// DefaultVariants are the query shapes observed across callers.
func DefaultVariants() []Variant {
	return []Variant{
		{Iterations: 1, CandlesPerPull: 200},
		{Iterations: 2, CandlesPerPull: 200},
		{Iterations: 1, CandlesPerPull: 500},
		{Iterations: 4, CandlesPerPull: 250},
	}
}

// Bundle is one immutable memoized set of indicator inputs.
type Bundle struct {
	Input      indicator.Input
	RawCandles []types.Candle
	ComputedAt time.Time
}

// Stat describes one cache entry for diagnostics.
type Stat struct {
	Key        Key     `json:"key"`
	AgeSeconds float64 `json:"age_seconds"`
}

// Cache memoizes bundles keyed by (category, symbol, interval, iterations,
// candlesPerPull). Writers are serialized per key through singleflight;
// reads of distinct keys never contend on a load.
type Cache struct {
	loader   marketdata.HistoricalProvider
	variants []Variant
	logger   *logger.Logger
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[Key]Bundle
	seen    map[triple]bool
}

// NewCache creates a cache over the given historical loader.
func NewCache(loader marketdata.HistoricalProvider, log *logger.Logger, variants []Variant) *Cache {
	if len(variants) == 0 {
		variants = DefaultVariants()
	}

	return &Cache{
		loader:   loader,
		variants: variants,
		logger:   log,
		now:      time.Now,
		group:    singleflight.Group{},
		mu:       sync.RWMutex{},
		entries:  make(map[Key]Bundle),
		seen:     make(map[triple]bool),
	}
}

// SetClock overrides the clock used for entry ages. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Fetch returns the bundle for the key, loading it on a miss. The returned
// duration is the entry's age; zero for a freshly loaded bundle. The first
// fetch ever observed for the key's (category, symbol, interval) triple also
// warms the configured sibling variants asynchronously; warming never blocks
// or fails the triggering request.
func (c *Cache) Fetch(ctx context.Context, key Key) (Bundle, time.Duration, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.maybeWarm(key)

		return entry, c.now().Sub(entry.ComputedAt), nil
	}

	b, err := c.loadGrouped(ctx, key)
	if err != nil {
		return Bundle{}, 0, err
	}

	c.maybeWarm(key)

	return b, c.now().Sub(b.ComputedAt), nil
}

// loadGrouped coalesces concurrent loads of the same key through singleflight,
// so a fetch and a background warm of the same key share one pull.
func (c *Cache) loadGrouped(ctx context.Context, key Key) (Bundle, error) {
	loaded, err, _ := c.group.Do(key.String(), func() (any, error) {
		// Another caller may have stored the entry while we queued.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()

		if ok {
			return entry, nil
		}

		return c.load(ctx, key)
	})
	if err != nil {
		return Bundle{}, err
	}

	b, ok := loaded.(Bundle)
	if !ok {
		return Bundle{}, errors.New(errors.ErrCodeUnknown, "unexpected singleflight result type")
	}

	return b, nil
}

// Invalidate clears entries matching the given scope. Unset fields match
// everything, so an unscoped call clears the whole cache.
func (c *Cache) Invalidate(category optional.Option[string], symbol optional.Option[string], interval optional.Option[types.Interval]) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for key := range c.entries {
		if category.IsSome() && key.Category != category.Unwrap() {
			continue
		}

		if symbol.IsSome() && key.Symbol != symbol.Unwrap() {
			continue
		}

		if interval.IsSome() && key.Interval != interval.Unwrap() {
			continue
		}

		delete(c.entries, key)
		delete(c.seen, key.triple())
		removed++
	}

	return removed
}

// Stats lists every cached entry with its age.
func (c *Cache) Stats() []Stat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	stats := make([]Stat, 0, len(c.entries))

	for key, entry := range c.entries {
		stats = append(stats, Stat{
			Key:        key,
			AgeSeconds: now.Sub(entry.ComputedAt).Seconds(),
		})
	}

	return stats
}

// load performs the historical pull and stores the derived bundle. A failed
// load stores nothing: partial results must never be cached.
func (c *Cache) load(ctx context.Context, key Key) (Bundle, error) {
	limit := key.Iterations * key.CandlesPerPull

	candles, err := c.loader.Klines(ctx, key.Symbol, key.Interval, limit)
	if err != nil {
		return Bundle{}, errors.Wrapf(errors.ErrCodeHistoricalLoadFailed, err, "failed to load candles for %s", key)
	}

	if len(candles) == 0 {
		return Bundle{}, errors.Newf(errors.ErrCodeDataNotFound, "no candles for %s", key)
	}

	types.SortCandlesAscending(candles)

	b := Bundle{
		Input:      indicator.InputFromCandles(candles),
		RawCandles: candles,
		ComputedAt: c.now(),
	}

	c.mu.Lock()
	c.entries[key] = b
	c.mu.Unlock()

	return b, nil
}

// maybeWarm kicks off background warming the first time a triple is seen.
func (c *Cache) maybeWarm(key Key) {
	tr := key.triple()

	c.mu.Lock()
	if c.seen[tr] {
		c.mu.Unlock()

		return
	}

	c.seen[tr] = true
	c.mu.Unlock()

	go c.warm(key)
}

func (c *Cache) warm(requested Key) {
	for _, v := range c.variants {
		key := requested
		key.Iterations = v.Iterations
		key.CandlesPerPull = v.CandlesPerPull

		if key == requested {
			continue
		}

		c.mu.RLock()
		_, cached := c.entries[key]
		c.mu.RUnlock()

		if cached {
			continue
		}

		if _, err := c.loadGrouped(context.Background(), key); err != nil {
			c.logger.Warn("bundle preload failed",
				zap.String("key", key.String()),
				zap.Error(err),
			)
		}
	}
}
