// Package marketdata is the boundary to the exchange transport. It delivers
// historical candle pulls and live candle deltas; everything downstream of it
// treats the transport as opaque.
package marketdata

import (
	"context"
	"iter"

	"github.com/signalforge-lab/signalforge/internal/types"
)

// HistoricalProvider pulls historical candles. Implementations may return
// candles in descending timestamp order; callers normalize with
// types.SortCandlesAscending before use.
type HistoricalProvider interface {
	// Klines returns up to limit historical candles for the symbol and
	// interval, ending at the current time.
	Klines(ctx context.Context, symbol string, interval types.Interval, limit int) ([]types.Candle, error)
}

// StreamProvider additionally delivers live candle deltas.
type StreamProvider interface {
	HistoricalProvider

	// Stream yields live ticks for one (symbol, interval) subscription until
	// the context is cancelled. Each call opens its own transport session, so
	// independent agents never share a subscription.
	Stream(ctx context.Context, symbol string, interval types.Interval) iter.Seq2[types.Tick, error]
}
