package bundle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// countingLoader serves synthetic candles and records every pull.
type countingLoader struct {
	mu    sync.Mutex
	calls []int
	fail  bool
}

func (l *countingLoader) Klines(_ context.Context, symbol string, _ types.Interval, limit int) ([]types.Candle, error) {
	l.mu.Lock()
	l.calls = append(l.calls, limit)
	l.mu.Unlock()

	if l.fail {
		return nil, errors.New(errors.ErrCodeMarketDataFetchFailed, "upstream down")
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, limit)

	// Delivered newest-first to mirror descending-timestamp APIs.
	for i := range candles {
		ts := t0.Add(time.Duration(limit-i) * time.Minute)
		candles[i] = types.Candle{Symbol: symbol, Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1}
	}

	return candles, nil
}

func (l *countingLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.calls)
}

func (l *countingLoader) callsFor(limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0

	for _, c := range l.calls {
		if c == limit {
			n++
		}
	}

	return n
}

// gateLoader parks pulls for one limit until released, so tests can hold a
// load in flight.
type gateLoader struct {
	countingLoader
	blockLimit int
	entered    chan struct{}
	release    chan struct{}
}

func (l *gateLoader) Klines(ctx context.Context, symbol string, interval types.Interval, limit int) ([]types.Candle, error) {
	if limit == l.blockLimit {
		select {
		case l.entered <- struct{}{}:
		default:
		}

		<-l.release
	}

	return l.countingLoader.Klines(ctx, symbol, interval, limit)
}

func testKey() Key {
	return Key{Category: "oscillator", Symbol: "BTCUSDT", Interval: types.Interval1m, Iterations: 1, CandlesPerPull: 10}
}

func newTestCache(loader *countingLoader) *Cache {
	// A single variant equal to the test key keeps warming inert unless a
	// test opts in with more variants.
	return NewCache(loader, logger.NewNopLogger(), []Variant{{Iterations: 1, CandlesPerPull: 10}})
}

func TestFetchCachesAndNormalizesOrder(t *testing.T) {
	loader := &countingLoader{}
	cache := newTestCache(loader)

	first, age, err := cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), age)

	// Ascending after normalization.
	for i := 1; i < len(first.RawCandles); i++ {
		assert.True(t, first.RawCandles[i].Timestamp.After(first.RawCandles[i-1].Timestamp))
	}

	second, _, err := cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)

	assert.Equal(t, 1, loader.callCount())
	assert.Equal(t, first.Input.Close, second.Input.Close)
	assert.Equal(t, first.RawCandles, second.RawCandles)
}

func TestFetchReportsAge(t *testing.T) {
	loader := &countingLoader{}
	cache := newTestCache(loader)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	_, _, err := cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)

	now = now.Add(90 * time.Second)

	_, age, err := cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, age)
}

func TestFetchFailureCachesNothing(t *testing.T) {
	loader := &countingLoader{fail: true}
	cache := newTestCache(loader)

	_, _, err := cache.Fetch(context.Background(), testKey())
	require.Error(t, err)
	assert.Empty(t, cache.Stats())

	// A retry hits the loader again rather than a poisoned entry.
	loader.fail = false

	_, _, err = cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)
}

func TestFirstTouchWarmsVariants(t *testing.T) {
	loader := &countingLoader{}
	cache := NewCache(loader, logger.NewNopLogger(), []Variant{
		{Iterations: 1, CandlesPerPull: 10},
		{Iterations: 2, CandlesPerPull: 10},
		{Iterations: 1, CandlesPerPull: 20},
	})

	_, _, err := cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)

	// The requested shape plus the two siblings.
	require.Eventually(t, func() bool { return loader.callCount() == 3 }, time.Second, 5*time.Millisecond)

	// Second fetch for the same triple must not warm again.
	_, _, err = cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, loader.callCount())

	// The warmed variants are now hits.
	warmedKey := testKey()
	warmedKey.Iterations = 2

	_, _, err = cache.Fetch(context.Background(), warmedKey)
	require.NoError(t, err)
	assert.Equal(t, 3, loader.callCount())
}

func TestInvalidateScopes(t *testing.T) {
	loader := &countingLoader{}
	cache := newTestCache(loader)

	btc := testKey()
	eth := testKey()
	eth.Symbol = "ETHUSDT"

	_, _, err := cache.Fetch(context.Background(), btc)
	require.NoError(t, err)
	_, _, err = cache.Fetch(context.Background(), eth)
	require.NoError(t, err)

	removed := cache.Invalidate(optional.None[string](), optional.Some("ETHUSDT"), optional.None[types.Interval]())
	assert.Equal(t, 1, removed)
	assert.Len(t, cache.Stats(), 1)

	removed = cache.Invalidate(optional.None[string](), optional.None[string](), optional.None[types.Interval]())
	assert.Equal(t, 1, removed)
	assert.Empty(t, cache.Stats())
}

func TestFetchDuringWarmSharesLoad(t *testing.T) {
	loader := &gateLoader{
		blockLimit: 20,
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	cache := NewCache(loader, logger.NewNopLogger(), []Variant{
		{Iterations: 1, CandlesPerPull: 10},
		{Iterations: 2, CandlesPerPull: 10},
	})

	_, _, err := cache.Fetch(context.Background(), testKey())
	require.NoError(t, err)

	// Warming of the sibling shape is now parked inside the loader.
	select {
	case <-loader.entered:
	case <-time.After(time.Second):
		t.Fatal("warming never reached the loader")
	}

	sibling := testKey()
	sibling.Iterations = 2

	done := make(chan error, 1)

	go func() {
		_, _, err := cache.Fetch(context.Background(), sibling)
		done <- err
	}()

	// Let the fetch queue behind the in-flight warm before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(loader.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fetch of the warming key never completed")
	}

	// One pull served both the warm and the overlapping fetch.
	assert.Equal(t, 1, loader.callsFor(20))
}

func TestConcurrentFetchSingleLoad(t *testing.T) {
	loader := &countingLoader{}
	cache := newTestCache(loader)

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, err := cache.Fetch(context.Background(), testKey())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, loader.callCount())
}
