package indicator

import (
	"math"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Stochastic output series names.
const (
	StochasticK = "k"
	StochasticD = "d"
)

const (
	defaultStochasticPeriod = 14
	defaultStochasticSmooth = 3
)

// Stochastic computes the stochastic oscillator: %K over the period's
// high/low range and %D as a smoothed %K.
func Stochastic(in Input, args Args) (Result, error) {
	period := args.Period
	if period == 0 {
		period = defaultStochasticPeriod
	}

	smooth := args.SignalPeriod
	if smooth == 0 {
		smooth = defaultStochasticSmooth
	}

	if period < 1 || smooth < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "stochastic periods must be positive, got %d/%d", period, smooth)
	}

	k := nanSeries(in.Len())

	for i := period - 1; i < in.Len(); i++ {
		highest := math.Inf(-1)
		lowest := math.Inf(1)

		for j := i - period + 1; j <= i; j++ {
			highest = math.Max(highest, in.High[j])
			lowest = math.Min(lowest, in.Low[j])
		}

		if highest == lowest {
			k[i] = 50
		} else {
			k[i] = 100 * (in.Close[i] - lowest) / (highest - lowest)
		}
	}

	d := emaOverDefined(k, smooth)

	return Result{
		Line: nil,
		Lines: map[string][]float64{
			StochasticK: k,
			StochasticD: d,
		},
	}, nil
}
