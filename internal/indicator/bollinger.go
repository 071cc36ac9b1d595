package indicator

import (
	"math"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Bollinger output series names.
const (
	BollingerUpper  = "upper"
	BollingerMiddle = "middle"
	BollingerLower  = "lower"
)

const defaultBollingerStdDev = 2.0

// BollingerBands computes the middle SMA band and upper/lower bands offset by
// a standard-deviation multiple.
func BollingerBands(in Input, args Args) (Result, error) {
	period := args.Period
	if period == 0 {
		period = defaultMAPeriod
	}

	if period < 1 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPeriod, "bollinger period must be positive, got %d", period)
	}

	mult := args.StdDev
	if mult == 0 {
		mult = defaultBollingerStdDev
	}

	middle := smaSeries(in.Close, period)
	upper := nanSeries(in.Len())
	lower := nanSeries(in.Len())

	for i := period - 1; i < in.Len(); i++ {
		if math.IsNaN(middle[i]) {
			continue
		}

		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := in.Close[j] - middle[i]
			variance += d * d
		}

		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + mult*sd
		lower[i] = middle[i] - mult*sd
	}

	return Result{
		Line: nil,
		Lines: map[string][]float64{
			BollingerUpper:  upper,
			BollingerMiddle: middle,
			BollingerLower:  lower,
		},
	}, nil
}
