package types

// IndicatorType identifies a technical indicator.
type IndicatorType string

const (
	IndicatorTypeNone       IndicatorType = ""
	IndicatorTypeSMA        IndicatorType = "sma"
	IndicatorTypeEMA        IndicatorType = "ema"
	IndicatorTypeRSI        IndicatorType = "rsi"
	IndicatorTypeMACD       IndicatorType = "macd"
	IndicatorTypeBollinger  IndicatorType = "bollinger_bands"
	IndicatorTypeStochastic IndicatorType = "stochastic"
	IndicatorTypeATR        IndicatorType = "atr"
)

// SignalType identifies a persisted signal rule family plus direction.
type SignalType string

const (
	// SignalOscillatorBelow fires when an oscillator's last value drops below a threshold.
	SignalOscillatorBelow SignalType = "oscillator_below"
	// SignalOscillatorAbove fires when an oscillator's last value rises above a threshold.
	SignalOscillatorAbove SignalType = "oscillator_above"
	// SignalCrossoverBullish fires when the current value crosses above the recent series.
	SignalCrossoverBullish SignalType = "crossover_bullish"
	// SignalCrossoverBearish fires when the current value crosses below the recent series.
	SignalCrossoverBearish SignalType = "crossover_bearish"
	// SignalMACDHistogramFlip fires when the MACD histogram turns from negative to positive.
	SignalMACDHistogramFlip SignalType = "macd_histogram_flip"
	// SignalMACDCross fires when the MACD line crosses its signal line.
	SignalMACDCross SignalType = "macd_cross"
	// SignalPriceBelow fires when the last close drops below a fixed price.
	SignalPriceBelow SignalType = "price_below"
	// SignalPriceAbove fires when the last close rises above a fixed price.
	SignalPriceAbove SignalType = "price_above"
	// SignalPatternEngulfing fires when the last two candles form an engulfing pattern.
	SignalPatternEngulfing SignalType = "pattern_engulfing"
	// SignalPivotBreakout fires when the last close breaks the prior bar's pivot resistance.
	SignalPivotBreakout SignalType = "pivot_breakout"
)

// SignalFamily groups signal types that share one canonical data-model shape.
type SignalFamily string

const (
	FamilyOscillator SignalFamily = "oscillator"
	FamilyCrossover  SignalFamily = "crossover"
	FamilyMACD       SignalFamily = "macd"
	FamilyPrice      SignalFamily = "price"
	FamilyPattern    SignalFamily = "pattern"
	FamilyPivot      SignalFamily = "pivot"
)

// Family returns the data-model family for a signal type. Unknown types map
// to the empty family; callers must treat that as a hard error, never as a
// default shape.
func (s SignalType) Family() SignalFamily {
	switch s {
	case SignalOscillatorBelow, SignalOscillatorAbove:
		return FamilyOscillator
	case SignalCrossoverBullish, SignalCrossoverBearish:
		return FamilyCrossover
	case SignalMACDHistogramFlip, SignalMACDCross:
		return FamilyMACD
	case SignalPriceBelow, SignalPriceAbove:
		return FamilyPrice
	case SignalPatternEngulfing:
		return FamilyPattern
	case SignalPivotBreakout:
		return FamilyPivot
	default:
		return ""
	}
}

// EvaluationResult is a predicate's verdict plus the data it was evaluated
// against. The data is kept so notification content can be derived without
// recomputing the indicator.
type EvaluationResult struct {
	Signal bool   `json:"signal"`
	Data   any    `json:"data"`
	Label  string `json:"label,omitempty"`
}
