package signal

import (
	"math"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// crossoverLookback is how many prior values (excluding the current one) a
// crossover predicate inspects.
const crossoverLookback = 3

// patternLookback is how many raw candles a pattern predicate inspects.
const patternLookback = 3

// OscillatorData is the canonical input for oscillator threshold predicates.
type OscillatorData struct {
	Value float64 `json:"value"`
}

// CrossoverData is the canonical input for crossover predicates: the last
// values of the series excluding the current one, plus the current value.
type CrossoverData struct {
	All     []float64 `json:"all"`
	Current float64   `json:"current"`
}

// MACDData is the canonical input for MACD predicates.
type MACDData struct {
	MACD       float64 `json:"macd"`
	Signal     float64 `json:"signal"`
	Histogram  float64 `json:"histogram"`
	PrevMACD   float64 `json:"previous_macd"`
	PrevSignal float64 `json:"previous_signal"`
}

// PriceData is the canonical input for price-action predicates.
type PriceData struct {
	Value float64 `json:"value"`
}

// PatternData is the canonical input for candlestick pattern predicates.
type PatternData struct {
	Candles []types.Candle `json:"candles"`
}

// PivotData is the canonical input for pivot predicates: the prior bar's
// high/low/close plus the last close.
type PivotData struct {
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	LastClose float64 `json:"last_close"`
}

// BuildDataModel adapts an indicator's raw output (or the raw candles, for
// families that need no indicator) into the canonical shape the signal
// type's predicate destructures. The mapping is exhaustive over the known
// catalog; an unmapped signal type is a hard configuration error, never a
// silent default.
func BuildDataModel(signalType types.SignalType, result indicator.Result, rawCandles []types.Candle) (any, error) {
	switch signalType.Family() {
	case types.FamilyOscillator:
		return oscillatorModel(result)
	case types.FamilyCrossover:
		return crossoverModel(result)
	case types.FamilyMACD:
		return macdModel(result)
	case types.FamilyPrice:
		return priceModel(rawCandles)
	case types.FamilyPattern:
		return patternModel(rawCandles)
	case types.FamilyPivot:
		return pivotModel(rawCandles)
	default:
		return nil, errors.Newf(errors.ErrCodeUnmappedSignalShape, "no data model mapped for signal type %q", signalType)
	}
}

func oscillatorModel(result indicator.Result) (any, error) {
	value, ok := indicator.LastDefined(result.Line)
	if !ok {
		return nil, errors.New(errors.ErrCodeInsufficientData, "oscillator series has no defined values")
	}

	return OscillatorData{Value: value}, nil
}

func crossoverModel(result indicator.Result) (any, error) {
	defined := definedSuffix(result.Line)
	if len(defined) < crossoverLookback+1 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData, "crossover needs %d defined values, have %d", crossoverLookback+1, len(defined))
	}

	current := defined[len(defined)-1]
	all := make([]float64, crossoverLookback)
	copy(all, defined[len(defined)-1-crossoverLookback:len(defined)-1])

	return CrossoverData{All: all, Current: current}, nil
}

func macdModel(result indicator.Result) (any, error) {
	macd := definedSuffix(result.Lines[indicator.MACDLine])
	sig := definedSuffix(result.Lines[indicator.MACDSignal])
	hist := definedSuffix(result.Lines[indicator.MACDHistogram])

	if len(macd) < 2 || len(sig) < 2 || len(hist) < 1 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "macd series too short for evaluation")
	}

	return MACDData{
		MACD:       macd[len(macd)-1],
		Signal:     sig[len(sig)-1],
		Histogram:  hist[len(hist)-1],
		PrevMACD:   macd[len(macd)-2],
		PrevSignal: sig[len(sig)-2],
	}, nil
}

func priceModel(rawCandles []types.Candle) (any, error) {
	if len(rawCandles) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "no candles for price evaluation")
	}

	return PriceData{Value: rawCandles[len(rawCandles)-1].Close}, nil
}

func patternModel(rawCandles []types.Candle) (any, error) {
	if len(rawCandles) < 2 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "pattern evaluation needs at least two candles")
	}

	n := patternLookback
	if len(rawCandles) < n {
		n = len(rawCandles)
	}

	candles := make([]types.Candle, n)
	copy(candles, rawCandles[len(rawCandles)-n:])

	return PatternData{Candles: candles}, nil
}

func pivotModel(rawCandles []types.Candle) (any, error) {
	if len(rawCandles) < 2 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "pivot evaluation needs at least two candles")
	}

	prior := rawCandles[len(rawCandles)-2]
	last := rawCandles[len(rawCandles)-1]

	return PivotData{
		High:      prior.High,
		Low:       prior.Low,
		Close:     prior.Close,
		LastClose: last.Close,
	}, nil
}

// definedSuffix returns the trailing run of non-NaN values of a series.
func definedSuffix(series []float64) []float64 {
	end := len(series)

	start := end
	for start > 0 && !math.IsNaN(series[start-1]) {
		start--
	}

	return series[start:end]
}
