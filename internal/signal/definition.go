// Package signal implements persisted trading-signal rules: their
// definitions, the statically typed predicate catalog, the shape-adapting
// data-model dispatch, and the evaluator that ties them together.
package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// DefaultMaxTriggerTimes bounds how often a rule fires before it retires.
const DefaultMaxTriggerTimes = 3

// idNamespace scopes deterministic signal IDs.
var idNamespace = uuid.MustParse("8f2eb40e-1d91-4b89-9c40-5a3a1c6de214")

// Definition is a persisted signal rule. Predicates are referenced by
// SignalType and resolved through the predicate registry at evaluation time;
// no executable code is ever stored.
type Definition struct {
	ID              string              `json:"id"`
	Symbol          string              `json:"symbol"`
	Timeframe       types.Interval      `json:"timeframe"`
	Indicator       types.IndicatorType `json:"indicator"`
	SignalType      types.SignalType    `json:"signal_type"`
	Value           float64             `json:"value"`
	IndicatorArgs   indicator.Args      `json:"indicator_args"`
	IsActive        bool                `json:"is_active"`
	TriggerCount    int                 `json:"trigger_count"`
	MaxTriggerTimes int                 `json:"max_trigger_times"`
	NextInvocation  time.Time           `json:"next_invocation"`
	LastExecuted    time.Time           `json:"last_executed"`
	CreatedOn       time.Time           `json:"created_on"`
	UpdatedOn       time.Time           `json:"updated_on"`
}

// DefinitionID derives the deterministic ID for a rule. Two constructions
// with the same (symbol, timeframe, signalType, value) always collide, which
// is what makes creation idempotent.
func DefinitionID(symbol string, timeframe types.Interval, signalType types.SignalType, value float64) string {
	name := fmt.Sprintf("%s|%s|%s|%g", symbol, timeframe, signalType, value)

	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// IsIndicatorBased reports whether evaluation needs an indicator computation.
// Price-action, pattern, and pivot rules read raw candles directly.
func (d *Definition) IsIndicatorBased() bool {
	return d.Indicator != types.IndicatorTypeNone
}

func newDefinition(symbol string, timeframe types.Interval, ind types.IndicatorType, signalType types.SignalType, value float64, args indicator.Args, now time.Time) (Definition, error) {
	if symbol == "" {
		return Definition{}, errors.New(errors.ErrCodeMissingParameter, "signal symbol is required")
	}

	if !timeframe.Valid() {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported timeframe %q", timeframe)
	}

	if signalType.Family() == "" {
		return Definition{}, errors.Newf(errors.ErrCodeUnmappedSignalShape, "unknown signal type %q", signalType)
	}

	return Definition{
		ID:              DefinitionID(symbol, timeframe, signalType, value),
		Symbol:          symbol,
		Timeframe:       timeframe,
		Indicator:       ind,
		SignalType:      signalType,
		Value:           value,
		IndicatorArgs:   args,
		IsActive:        true,
		TriggerCount:    0,
		MaxTriggerTimes: DefaultMaxTriggerTimes,
		NextInvocation:  now,
		LastExecuted:    time.Time{},
		CreatedOn:       now,
		UpdatedOn:       now,
	}, nil
}

// NewOscillatorSignal builds a threshold rule over an oscillator indicator,
// e.g. "RSI below 30".
func NewOscillatorSignal(symbol string, timeframe types.Interval, ind types.IndicatorType, signalType types.SignalType, threshold float64, args indicator.Args, now time.Time) (Definition, error) {
	if signalType.Family() != types.FamilyOscillator {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "%q is not an oscillator signal type", signalType)
	}

	if ind == types.IndicatorTypeNone {
		return Definition{}, errors.New(errors.ErrCodeMissingParameter, "oscillator signals require an indicator")
	}

	return newDefinition(symbol, timeframe, ind, signalType, threshold, args, now)
}

// NewCrossoverSignal builds a crossover rule over a moving-average style
// indicator: it fires when the current value crosses the recent series.
func NewCrossoverSignal(symbol string, timeframe types.Interval, ind types.IndicatorType, signalType types.SignalType, args indicator.Args, now time.Time) (Definition, error) {
	if signalType.Family() != types.FamilyCrossover {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "%q is not a crossover signal type", signalType)
	}

	if ind == types.IndicatorTypeNone {
		return Definition{}, errors.New(errors.ErrCodeMissingParameter, "crossover signals require an indicator")
	}

	return newDefinition(symbol, timeframe, ind, signalType, 0, args, now)
}

// NewMACDSignal builds a MACD rule (histogram flip or line cross).
func NewMACDSignal(symbol string, timeframe types.Interval, signalType types.SignalType, args indicator.Args, now time.Time) (Definition, error) {
	if signalType.Family() != types.FamilyMACD {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "%q is not a macd signal type", signalType)
	}

	return newDefinition(symbol, timeframe, types.IndicatorTypeMACD, signalType, 0, args, now)
}

// NewPriceSignal builds a price-action rule against a fixed price level.
// It needs no indicator.
func NewPriceSignal(symbol string, timeframe types.Interval, signalType types.SignalType, price float64, now time.Time) (Definition, error) {
	if signalType.Family() != types.FamilyPrice {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "%q is not a price signal type", signalType)
	}

	if price <= 0 {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidThreshold, "price level must be positive, got %g", price)
	}

	return newDefinition(symbol, timeframe, types.IndicatorTypeNone, signalType, price, indicator.Args{}, now)
}

// NewPatternSignal builds a candlestick-pattern rule over raw candles.
func NewPatternSignal(symbol string, timeframe types.Interval, signalType types.SignalType, now time.Time) (Definition, error) {
	if signalType.Family() != types.FamilyPattern {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "%q is not a pattern signal type", signalType)
	}

	return newDefinition(symbol, timeframe, types.IndicatorTypeNone, signalType, 0, indicator.Args{}, now)
}

// NewPivotSignal builds a pivot-level breakout rule over raw candles.
func NewPivotSignal(symbol string, timeframe types.Interval, signalType types.SignalType, now time.Time) (Definition, error) {
	if signalType.Family() != types.FamilyPivot {
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "%q is not a pivot signal type", signalType)
	}

	return newDefinition(symbol, timeframe, types.IndicatorTypeNone, signalType, 0, indicator.Args{}, now)
}
