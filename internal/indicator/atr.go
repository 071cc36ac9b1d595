package indicator

import (
	"math"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

const defaultATRPeriod = 14

// ATR computes the Average True Range with Wilder's smoothing.
func ATR(in Input, args Args) (Result, error) {
	period := args.Period
	if period == 0 {
		period = defaultATRPeriod
	}

	if period < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "atr period must be positive, got %d", period)
	}

	out := nanSeries(in.Len())

	if in.Len() < period+1 {
		return Result{Line: out, Lines: nil}, nil
	}

	tr := make([]float64, in.Len())
	tr[0] = in.High[0] - in.Low[0]

	for i := 1; i < in.Len(); i++ {
		highLow := in.High[i] - in.Low[i]
		highClose := math.Abs(in.High[i] - in.Close[i-1])
		lowClose := math.Abs(in.Low[i] - in.Close[i-1])
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}

	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < in.Len(); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}

	return Result{Line: out, Lines: nil}, nil
}
