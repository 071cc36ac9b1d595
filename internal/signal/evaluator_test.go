package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalforge-lab/signalforge/internal/bundle"
	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// seriesLoader serves a fixed close series as candles, newest request size
// trimmed from the tail.
type seriesLoader struct {
	closes []float64
}

func (l *seriesLoader) Klines(_ context.Context, symbol string, interval types.Interval, limit int) ([]types.Candle, error) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	step := interval.Duration()

	candles := make([]types.Candle, 0, len(l.closes))
	for i, price := range l.closes {
		candles = append(candles, types.Candle{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1,
		})
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

func newTestEvaluator(closes []float64) *Evaluator {
	log := logger.NewNopLogger()
	cache := bundle.NewCache(&seriesLoader{closes: closes}, log, []bundle.Variant{{Iterations: 1, CandlesPerPull: 200}})

	return NewEvaluator(cache, indicator.NewDefaultRegistry(), NewDefaultPredicateRegistry(), log)
}

// A monotonically falling series drives RSI to 0, which is below any
// positive threshold; a rising series drives it to 100.
func fallingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 1000 - float64(i)
	}

	return closes
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 1000 + float64(i)
	}

	return closes
}

func TestEvaluateOscillatorBelowFires(t *testing.T) {
	e := newTestEvaluator(fallingCloses(60))

	def, err := NewOscillatorSignal("BTCUSDT", types.Interval15m, types.IndicatorTypeRSI, types.SignalOscillatorBelow, 30, indicator.Args{Period: 14}, defNow)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), &def)
	require.NoError(t, err)
	assert.True(t, result.Signal)

	data, ok := result.Data.(OscillatorData)
	require.True(t, ok)
	assert.Less(t, data.Value, 30.0)
}

func TestEvaluateOscillatorBelowDoesNotFire(t *testing.T) {
	e := newTestEvaluator(risingCloses(60))

	def, err := NewOscillatorSignal("BTCUSDT", types.Interval15m, types.IndicatorTypeRSI, types.SignalOscillatorBelow, 30, indicator.Args{Period: 14}, defNow)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), &def)
	require.NoError(t, err)
	assert.False(t, result.Signal)
}

func TestEvaluatePriceSignalSkipsIndicator(t *testing.T) {
	e := newTestEvaluator(risingCloses(10))

	def, err := NewPriceSignal("BTCUSDT", types.Interval1h, types.SignalPriceAbove, 1005, defNow)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), &def)
	require.NoError(t, err)
	assert.True(t, result.Signal)
}

func TestEvaluateUnknownPredicate(t *testing.T) {
	e := newTestEvaluator(risingCloses(10))

	def := Definition{
		ID:         "x",
		Symbol:     "BTCUSDT",
		Timeframe:  types.Interval1h,
		SignalType: types.SignalType("made_up"),
	}

	_, err := e.Evaluate(context.Background(), &def)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePredicateNotFound))
}

func TestEvaluateRecoversPredicatePanic(t *testing.T) {
	log := logger.NewNopLogger()
	cache := bundle.NewCache(&seriesLoader{closes: risingCloses(10)}, log, []bundle.Variant{{Iterations: 1, CandlesPerPull: 200}})

	predicates := NewDefaultPredicateRegistry()
	predicates.Register(types.SignalPriceAbove, func(any, *Definition) (types.EvaluationResult, error) {
		panic("boom")
	})

	e := NewEvaluator(cache, indicator.NewDefaultRegistry(), predicates, log)

	def, err := NewPriceSignal("BTCUSDT", types.Interval1h, types.SignalPriceAbove, 1005, defNow)
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), &def)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePredicatePanic))
}
