package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestBuffer(maxSize int) *Buffer {
	b := NewBuffer("BTCUSDT", types.Interval1m, maxSize)
	b.SetClock(func() time.Time { return testNow })

	return b
}

// closedTick builds a tick whose window closed before the test clock.
func closedTick(ts time.Time, o, h, l, c, v float64) types.Tick {
	return types.Tick{
		Symbol:      "BTCUSDT",
		Open:        o,
		High:        h,
		Low:         l,
		Close:       c,
		Volume:      v,
		Timestamp:   ts,
		WindowStart: ts,
		WindowEnd:   ts.Add(time.Minute),
	}
}

// formingTick builds a tick whose window is still open at the test clock.
func formingTick(ts time.Time, o, h, l, c, v float64) types.Tick {
	return types.Tick{
		Symbol:      "BTCUSDT",
		Open:        o,
		High:        h,
		Low:         l,
		Close:       c,
		Volume:      v,
		Timestamp:   ts,
		WindowStart: ts,
		WindowEnd:   testNow.Add(time.Minute),
	}
}

func TestIngestClosedBarAlwaysAppends(t *testing.T) {
	b := newTestBuffer(10)
	ts := testNow.Add(-5 * time.Minute)

	require.NoError(t, b.Ingest(closedTick(ts, 100, 105, 95, 102, 10)))
	// Identical closed bar re-delivered: still appends, closed bars never merge.
	require.NoError(t, b.Ingest(closedTick(ts, 100, 105, 95, 102, 10)))

	assert.Equal(t, 2, b.Len())
}

func TestIngestFormingBarReplacesLast(t *testing.T) {
	b := newTestBuffer(10)
	ts := testNow.Truncate(time.Minute)

	require.NoError(t, b.Ingest(formingTick(ts, 100, 101, 99, 100.5, 1)))
	require.NoError(t, b.Ingest(formingTick(ts, 100, 102, 99, 101.5, 2)))

	assert.Equal(t, 1, b.Len())
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, 101.5, last.Close)
	assert.Equal(t, 2.0, last.Volume)
}

func TestIngestIdenticalFormingTickIsNoOp(t *testing.T) {
	b := newTestBuffer(10)
	ts := testNow.Truncate(time.Minute)
	tick := formingTick(ts, 100, 101, 99, 100.5, 1)

	require.NoError(t, b.Ingest(tick))
	before := b.Snapshot()

	require.NoError(t, b.Ingest(tick))

	assert.Equal(t, before, b.Snapshot())
}

func TestTrimBoundsHoldAfterEveryIngest(t *testing.T) {
	b := newTestBuffer(3)

	for i := 0; i < 20; i++ {
		ts := testNow.Add(time.Duration(i-30) * time.Minute)
		require.NoError(t, b.Ingest(closedTick(ts, 1, 2, 0.5, 1.5, 1)))
		assert.LessOrEqual(t, b.Len(), 3)
	}

	// Oldest candles were dropped from the front.
	snapshot := b.Snapshot()
	assert.Equal(t, 3, len(snapshot))
	assert.Equal(t, testNow.Add(-13*time.Minute), snapshot[0].Timestamp)
}

func TestIngestRejectsMalformedTick(t *testing.T) {
	b := newTestBuffer(10)

	err := b.Ingest(types.Tick{Symbol: "BTCUSDT"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedTick))
	assert.False(t, b.IsLoaded())
}

// Scenario: two closed candles into a maxSize=1 buffer leaves exactly the
// second candle.
func TestMaxSizeOneKeepsOnlyNewestCandle(t *testing.T) {
	b := newTestBuffer(1)
	t0 := testNow.Add(-10 * time.Minute)
	t1 := t0.Add(time.Minute)

	require.NoError(t, b.Ingest(closedTick(t0, 100, 105, 95, 102, 10)))
	require.NoError(t, b.Ingest(closedTick(t1, 102, 103, 98, 99, 12)))

	snapshot := b.Snapshot()
	require.Equal(t, 1, len(snapshot))
	assert.Equal(t, t1, snapshot[0].Timestamp)
	assert.Equal(t, 99.0, snapshot[0].Close)
}
