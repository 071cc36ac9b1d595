package indicator

import (
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

const defaultRSIPeriod = 14

// RSI computes the Relative Strength Index over closes using Wilder's
// smoothing.
func RSI(in Input, args Args) (Result, error) {
	period := args.Period
	if period == 0 {
		period = defaultRSIPeriod
	}

	if period < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "rsi period must be positive, got %d", period)
	}

	closes := in.Close
	out := nanSeries(len(closes))

	if len(closes) < period+1 {
		return Result{Line: out, Lines: nil}, nil
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]

		gain := 0.0
		loss := 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return Result{Line: out, Lines: nil}, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}
