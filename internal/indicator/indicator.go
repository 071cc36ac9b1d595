// Package indicator implements the technical indicator library: pure
// functions from OHLCV series to derived series. Outputs are aligned to the
// input index; positions before an indicator's warm-up period hold NaN.
package indicator

import (
	"math"

	"github.com/signalforge-lab/signalforge/internal/types"
)

// Input carries the parallel OHLCV series an indicator computes over, plus
// the raw candles for pattern-style indicators that need full bars.
type Input struct {
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
	Volume     []float64
	RawCandles []types.Candle
}

// InputFromCandles derives the parallel series from raw candles.
func InputFromCandles(candles []types.Candle) Input {
	in := Input{
		Open:       make([]float64, len(candles)),
		High:       make([]float64, len(candles)),
		Low:        make([]float64, len(candles)),
		Close:      make([]float64, len(candles)),
		Volume:     make([]float64, len(candles)),
		RawCandles: candles,
	}

	for i, c := range candles {
		in.Open[i] = c.Open
		in.High[i] = c.High
		in.Low[i] = c.Low
		in.Close[i] = c.Close
		in.Volume[i] = c.Volume
	}

	return in
}

// Len returns the number of bars in the input.
func (in Input) Len() int {
	return len(in.Close)
}

// Args parameterizes an indicator computation. Unused fields are ignored by
// indicators that do not need them; zero values select each indicator's
// defaults.
type Args struct {
	Period       int     `json:"period,omitempty" yaml:"period,omitempty"`
	FastPeriod   int     `json:"fast_period,omitempty" yaml:"fast_period,omitempty"`
	SlowPeriod   int     `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
	SignalPeriod int     `json:"signal_period,omitempty" yaml:"signal_period,omitempty"`
	StdDev       float64 `json:"std_dev,omitempty" yaml:"std_dev,omitempty"`
}

// Result is an indicator's output: either a single series (Line) or a struct
// of named parallel series (Lines). Exactly one of the two is populated.
type Result struct {
	Line  []float64
	Lines map[string][]float64
}

// Func is the indicator contract: a pure function over OHLCV series.
type Func func(in Input, args Args) (Result, error)

// LastDefined returns the last non-NaN value of a series and whether one exists.
func LastDefined(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i], true
		}
	}

	return 0, false
}
