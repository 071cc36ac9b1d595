package indicator

import (
	"math"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

const defaultMAPeriod = 20

// SMA computes a simple moving average of closes.
func SMA(in Input, args Args) (Result, error) {
	period := args.Period
	if period == 0 {
		period = defaultMAPeriod
	}

	if period < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "sma period must be positive, got %d", period)
	}

	return Result{Line: smaSeries(in.Close, period), Lines: nil}, nil
}

// EMA computes an exponential moving average of closes.
func EMA(in Input, args Args) (Result, error) {
	period := args.Period
	if period == 0 {
		period = defaultMAPeriod
	}

	if period < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "ema period must be positive, got %d", period)
	}

	return Result{Line: emaSeries(in.Close, period), Lines: nil}, nil
}

func smaSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))

	if len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out
}

// emaSeries seeds the EMA with the SMA of the first period values, the
// conventional seeding used across charting platforms.
func emaSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))

	if len(values) < period {
		return out
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}

	seed /= float64(period)
	out[period-1] = seed

	multiplier := 2.0 / float64(period+1)
	prev := seed

	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*multiplier + prev
		out[i] = prev
	}

	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
