package indicator

import (
	"math"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// MACD output series names.
const (
	MACDLine      = "macd"
	MACDSignal    = "signal"
	MACDHistogram = "histogram"
)

const (
	defaultMACDFast   = 12
	defaultMACDSlow   = 26
	defaultMACDSignal = 9
)

// MACD computes the Moving Average Convergence Divergence: the fast/slow EMA
// difference, its signal EMA, and the histogram between the two.
func MACD(in Input, args Args) (Result, error) {
	fast := args.FastPeriod
	if fast == 0 {
		fast = defaultMACDFast
	}

	slow := args.SlowPeriod
	if slow == 0 {
		slow = defaultMACDSlow
	}

	signalPeriod := args.SignalPeriod
	if signalPeriod == 0 {
		signalPeriod = defaultMACDSignal
	}

	if fast < 1 || slow < 1 || signalPeriod < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "macd periods must be positive, got %d/%d/%d", fast, slow, signalPeriod)
	}

	if fast >= slow {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "macd fast period %d must be below slow period %d", fast, slow)
	}

	fastEMA := emaSeries(in.Close, fast)
	slowEMA := emaSeries(in.Close, slow)

	macd := nanSeries(in.Len())
	for i := range macd {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signal := emaOverDefined(macd, signalPeriod)

	histogram := nanSeries(in.Len())
	for i := range histogram {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signal[i]) {
			histogram[i] = macd[i] - signal[i]
		}
	}

	return Result{
		Line: nil,
		Lines: map[string][]float64{
			MACDLine:      macd,
			MACDSignal:    signal,
			MACDHistogram: histogram,
		},
	}, nil
}

// emaOverDefined applies an EMA to the defined suffix of a series that
// starts with NaN warm-up values, keeping the output index-aligned.
func emaOverDefined(values []float64, period int) []float64 {
	out := nanSeries(len(values))

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}

	defined := values[start:]
	if len(defined) < period {
		return out
	}

	ema := emaSeries(defined, period)
	copy(out[start:], ema)

	return out
}
