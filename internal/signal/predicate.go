package signal

import (
	"fmt"
	"sync"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Predicate is a named, statically typed rule implementation. It receives
// the canonical data model for its family plus the definition it evaluates.
type Predicate func(data any, def *Definition) (types.EvaluationResult, error)

// PredicateRegistry resolves predicates by signal type.
type PredicateRegistry struct {
	predicates map[types.SignalType]Predicate
	mu         sync.RWMutex
}

// NewPredicateRegistry creates an empty registry.
func NewPredicateRegistry() *PredicateRegistry {
	return &PredicateRegistry{
		predicates: make(map[types.SignalType]Predicate),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultPredicateRegistry creates a registry with the full built-in catalog.
func NewDefaultPredicateRegistry() *PredicateRegistry {
	r := NewPredicateRegistry()

	r.Register(types.SignalOscillatorBelow, oscillatorBelow)
	r.Register(types.SignalOscillatorAbove, oscillatorAbove)
	r.Register(types.SignalCrossoverBullish, crossoverBullish)
	r.Register(types.SignalCrossoverBearish, crossoverBearish)
	r.Register(types.SignalMACDHistogramFlip, macdHistogramFlip)
	r.Register(types.SignalMACDCross, macdCross)
	r.Register(types.SignalPriceBelow, priceBelow)
	r.Register(types.SignalPriceAbove, priceAbove)
	r.Register(types.SignalPatternEngulfing, patternEngulfing)
	r.Register(types.SignalPivotBreakout, pivotBreakout)

	return r
}

// Register adds or replaces a predicate for a signal type.
func (r *PredicateRegistry) Register(signalType types.SignalType, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.predicates[signalType] = p
}

// Get resolves the predicate for a signal type.
func (r *PredicateRegistry) Get(signalType types.SignalType) (Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.predicates[signalType]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePredicateNotFound, "no predicate registered for signal type %q", signalType)
	}

	return p, nil
}

func oscillatorBelow(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[OscillatorData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	return types.EvaluationResult{
		Signal: d.Value < def.Value,
		Data:   d,
		Label:  fmt.Sprintf("%s %s below %g", def.Symbol, def.Indicator, def.Value),
	}, nil
}

func oscillatorAbove(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[OscillatorData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	return types.EvaluationResult{
		Signal: d.Value > def.Value,
		Data:   d,
		Label:  fmt.Sprintf("%s %s above %g", def.Symbol, def.Indicator, def.Value),
	}, nil
}

// crossoverBullish fires when the current value sits above every recent value,
// i.e. the series just turned upward through its own recent history.
func crossoverBullish(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[CrossoverData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	fired := len(d.All) > 0

	for _, v := range d.All {
		if d.Current <= v {
			fired = false

			break
		}
	}

	return types.EvaluationResult{
		Signal: fired,
		Data:   d,
		Label:  fmt.Sprintf("%s %s bullish crossover", def.Symbol, def.Indicator),
	}, nil
}

func crossoverBearish(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[CrossoverData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	fired := len(d.All) > 0

	for _, v := range d.All {
		if d.Current >= v {
			fired = false

			break
		}
	}

	return types.EvaluationResult{
		Signal: fired,
		Data:   d,
		Label:  fmt.Sprintf("%s %s bearish crossover", def.Symbol, def.Indicator),
	}, nil
}

// macdHistogramFlip fires when the histogram turns from negative to positive.
func macdHistogramFlip(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[MACDData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	prevHistogram := d.PrevMACD - d.PrevSignal

	return types.EvaluationResult{
		Signal: prevHistogram <= 0 && d.Histogram > 0,
		Data:   d,
		Label:  fmt.Sprintf("%s macd histogram flipped positive", def.Symbol),
	}, nil
}

// macdCross fires when the MACD line just crossed above its signal line.
func macdCross(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[MACDData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	return types.EvaluationResult{
		Signal: d.PrevMACD <= d.PrevSignal && d.MACD > d.Signal,
		Data:   d,
		Label:  fmt.Sprintf("%s macd crossed above signal", def.Symbol),
	}, nil
}

func priceBelow(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[PriceData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	return types.EvaluationResult{
		Signal: d.Value < def.Value,
		Data:   d,
		Label:  fmt.Sprintf("%s price below %g", def.Symbol, def.Value),
	}, nil
}

func priceAbove(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[PriceData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	return types.EvaluationResult{
		Signal: d.Value > def.Value,
		Data:   d,
		Label:  fmt.Sprintf("%s price above %g", def.Symbol, def.Value),
	}, nil
}

// patternEngulfing fires on a bullish engulfing: a down candle followed by an
// up candle whose body engulfs the prior body.
func patternEngulfing(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[PatternData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	n := len(d.Candles)
	if n < 2 {
		return types.EvaluationResult{Signal: false, Data: d, Label: ""}, nil
	}

	prev := d.Candles[n-2]
	last := d.Candles[n-1]

	engulfing := prev.Close < prev.Open &&
		last.Close > last.Open &&
		last.Open <= prev.Close &&
		last.Close >= prev.Open

	return types.EvaluationResult{
		Signal: engulfing,
		Data:   d,
		Label:  fmt.Sprintf("%s bullish engulfing", def.Symbol),
	}, nil
}

// pivotBreakout fires when the last close breaks the prior bar's first
// resistance level (R1 = 2P - L with P the pivot point).
func pivotBreakout(data any, def *Definition) (types.EvaluationResult, error) {
	d, err := asModel[PivotData](data)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	pivot := (d.High + d.Low + d.Close) / 3
	resistance := 2*pivot - d.Low

	return types.EvaluationResult{
		Signal: d.LastClose > resistance,
		Data:   d,
		Label:  fmt.Sprintf("%s pivot breakout above %.4f", def.Symbol, resistance),
	}, nil
}

// asModel narrows the dispatched data model to the type the predicate
// expects. A mismatch means the dispatch table and the catalog disagree.
func asModel[T any](data any) (T, error) {
	d, ok := data.(T)
	if !ok {
		var zero T

		return zero, errors.Newf(errors.ErrCodeUnmappedSignalShape, "predicate received %T, expected %T", data, zero)
	}

	return d, nil
}
