// Package market owns the streaming side of the system: the per-(symbol,
// interval) candle buffer and the agent that feeds it from a transport
// subscription.
package market

import (
	"math"
	"sync"
	"time"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// DefaultBufferSize bounds a buffer when no explicit size is configured.
const DefaultBufferSize = 500

// Buffer holds the ordered candle history for one (symbol, interval) pair.
// It is mutated only by its owning agent; reads from other goroutines go
// through Snapshot.
type Buffer struct {
	symbol   string
	interval types.Interval
	maxSize  int
	candles  []types.Candle
	now      func() time.Time
	mu       sync.RWMutex
}

// NewBuffer creates an empty buffer bounded to maxSize candles.
func NewBuffer(symbol string, interval types.Interval, maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}

	return &Buffer{
		symbol:   symbol,
		interval: interval,
		maxSize:  maxSize,
		candles:  make([]types.Candle, 0, maxSize),
		now:      time.Now,
		mu:       sync.RWMutex{},
	}
}

// SetClock overrides the wall clock used to decide whether a bar has closed.
// Intended for tests.
func (b *Buffer) SetClock(now func() time.Time) {
	b.now = now
}

// Symbol returns the symbol this buffer represents.
func (b *Buffer) Symbol() string { return b.symbol }

// Interval returns the bar interval this buffer represents.
func (b *Buffer) Interval() types.Interval { return b.interval }

// IsLoaded reports whether the buffer holds at least one candle.
func (b *Buffer) IsLoaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.candles) > 0
}

// Len returns the number of candles currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.candles)
}

// Last returns the most recent candle, if any.
func (b *Buffer) Last() (types.Candle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.candles) == 0 {
		return types.Candle{}, false
	}

	return b.candles[len(b.candles)-1], true
}

// Snapshot returns a copy of the buffered candles in ascending order.
func (b *Buffer) Snapshot() []types.Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.Candle, len(b.candles))
	copy(out, b.candles)

	return out
}

// Ingest applies one tick to the buffer.
//
// If the tick's window has already closed (WindowEnd <= now) the bar can
// never recur, so it is appended unconditionally. Otherwise the bar is still
// forming: if it differs from the last stored candle in timestamp or any
// OHLCV field the last candle is replaced in place, and an identical
// re-delivery is a no-op. After every mutation the buffer is trimmed from
// the front to maxSize.
func (b *Buffer) Ingest(tick types.Tick) error {
	if err := validateTick(tick); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	candle := tick.Candle()

	if !tick.WindowEnd.After(b.now()) {
		// Closed bar.
		b.candles = append(b.candles, candle)
		b.trim()

		return nil
	}

	// Still-forming bar.
	if n := len(b.candles); n > 0 && b.candles[n-1].Equal(candle) {
		return nil
	}

	if n := len(b.candles); n > 0 {
		b.candles[n-1] = candle
	} else {
		b.candles = append(b.candles, candle)
	}

	b.trim()

	return nil
}

// trim drops candles from the front until the size bound holds.
// Callers must hold the write lock.
func (b *Buffer) trim() {
	if over := len(b.candles) - b.maxSize; over > 0 {
		b.candles = append(b.candles[:0], b.candles[over:]...)
	}
}

func validateTick(tick types.Tick) error {
	if tick.Timestamp.IsZero() {
		return errors.New(errors.ErrCodeMalformedTick, "tick has a zero timestamp")
	}

	for _, v := range []float64{tick.Open, tick.High, tick.Low, tick.Close, tick.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeMalformedTick, "tick for %s has a non-finite OHLCV field", tick.Symbol)
		}
	}

	return nil
}
