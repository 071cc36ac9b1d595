package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

func inputFromCloses(closes ...float64) Input {
	candles := make([]types.Candle, len(closes))
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range closes {
		candles[i] = types.Candle{
			Symbol:    "TEST",
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1,
		}
	}

	return InputFromCandles(candles)
}

func TestSMA(t *testing.T) {
	in := inputFromCloses(1, 2, 3, 4, 5)

	res, err := SMA(in, Args{Period: 3})
	require.NoError(t, err)
	require.Len(t, res.Line, 5)

	assert.True(t, math.IsNaN(res.Line[0]))
	assert.True(t, math.IsNaN(res.Line[1]))
	assert.InDelta(t, 2.0, res.Line[2], 1e-9)
	assert.InDelta(t, 3.0, res.Line[3], 1e-9)
	assert.InDelta(t, 4.0, res.Line[4], 1e-9)
}

func TestEMASeedsWithSMA(t *testing.T) {
	in := inputFromCloses(1, 2, 3, 4, 5)

	res, err := EMA(in, Args{Period: 3})
	require.NoError(t, err)

	// Seed = sma(1,2,3) = 2; then ema(4) = (4-2)*0.5+2 = 3; ema(5) = 4.
	assert.InDelta(t, 2.0, res.Line[2], 1e-9)
	assert.InDelta(t, 3.0, res.Line[3], 1e-9)
	assert.InDelta(t, 4.0, res.Line[4], 1e-9)
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	in := inputFromCloses(1, 2, 3, 4, 5, 6, 7, 8)

	res, err := RSI(in, Args{Period: 5})
	require.NoError(t, err)

	last, ok := LastDefined(res.Line)
	require.True(t, ok)
	assert.InDelta(t, 100.0, last, 1e-9)
}

func TestRSIInsufficientDataIsAllNaN(t *testing.T) {
	in := inputFromCloses(1, 2, 3)

	res, err := RSI(in, Args{Period: 14})
	require.NoError(t, err)

	_, ok := LastDefined(res.Line)
	assert.False(t, ok)
}

func TestMACDLinesAreAligned(t *testing.T) {
	closes := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		closes = append(closes, 100+float64(i%7))
	}

	res, err := MACD(inputFromCloses(closes...), Args{})
	require.NoError(t, err)

	require.Contains(t, res.Lines, MACDLine)
	require.Contains(t, res.Lines, MACDSignal)
	require.Contains(t, res.Lines, MACDHistogram)

	for _, series := range res.Lines {
		assert.Len(t, series, 60)
	}

	macd, ok := LastDefined(res.Lines[MACDLine])
	require.True(t, ok)
	sig, ok := LastDefined(res.Lines[MACDSignal])
	require.True(t, ok)
	hist, ok := LastDefined(res.Lines[MACDHistogram])
	require.True(t, ok)
	assert.InDelta(t, macd-sig, hist, 1e-9)
}

func TestMACDRejectsInvertedPeriods(t *testing.T) {
	_, err := MACD(inputFromCloses(1, 2, 3), Args{FastPeriod: 26, SlowPeriod: 12})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func TestBollingerBandsBracketMiddle(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 11, 12, 13, 12, 11}

	res, err := BollingerBands(inputFromCloses(closes...), Args{Period: 5})
	require.NoError(t, err)

	upper, _ := LastDefined(res.Lines[BollingerUpper])
	middle, _ := LastDefined(res.Lines[BollingerMiddle])
	lower, _ := LastDefined(res.Lines[BollingerLower])

	assert.Greater(t, upper, middle)
	assert.Less(t, lower, middle)
}

func TestStochasticRange(t *testing.T) {
	closes := []float64{10, 12, 9, 14, 13, 11, 15, 16, 12, 14, 13, 15, 17, 16, 18}

	res, err := Stochastic(inputFromCloses(closes...), Args{Period: 5})
	require.NoError(t, err)

	k, ok := LastDefined(res.Lines[StochasticK])
	require.True(t, ok)
	assert.GreaterOrEqual(t, k, 0.0)
	assert.LessOrEqual(t, k, 100.0)
}

func TestATRIsPositive(t *testing.T) {
	closes := []float64{10, 12, 9, 14, 13, 11, 15, 16, 12, 14, 13, 15, 17, 16, 18, 19}

	res, err := ATR(inputFromCloses(closes...), Args{Period: 5})
	require.NoError(t, err)

	atr, ok := LastDefined(res.Line)
	require.True(t, ok)
	assert.Greater(t, atr, 0.0)
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	fn, err := r.Get(types.IndicatorTypeRSI)
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = r.Get(types.IndicatorType("nope"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndicatorNotFound))

	err = r.Register(types.IndicatorTypeRSI, RSI)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))

	assert.Len(t, r.List(), 7)
}
