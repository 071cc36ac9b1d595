package backtest

import (
	"math"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Action is a strategy's per-bar decision.
type Action string

const (
	ActionHold Action = "hold"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Decision is one bar's strategy output. Confidence below the configured
// minimum keeps the engine flat even when the action is directional.
type Decision struct {
	Action     Action
	Confidence float64
	Reason     string
}

// Strategy decides entries and exits over a chronologically ordered candle
// series. Decide is called once per bar with the index of the current bar;
// implementations may only read candles up to and including that index.
type Strategy interface {
	Name() string
	Decide(candles []types.Candle, index int) (Decision, error)
}

// SignalStrategy replays one persisted signal rule bar by bar: at each index
// it rebuilds the rule's data model from the candle prefix and invokes its
// predicate. A true verdict becomes a directional decision on the side the
// signal type implies.
type SignalStrategy struct {
	def        *signal.Definition
	indicators *indicator.Registry
	predicates *signal.PredicateRegistry
	side       types.Side
}

// NewSignalStrategy wires a replayable strategy for a signal definition.
func NewSignalStrategy(def *signal.Definition, indicators *indicator.Registry, predicates *signal.PredicateRegistry) (*SignalStrategy, error) {
	if _, err := predicates.Get(def.SignalType); err != nil {
		return nil, err
	}

	return &SignalStrategy{
		def:        def,
		indicators: indicators,
		predicates: predicates,
		side:       entrySide(def.SignalType),
	}, nil
}

// entrySide maps a signal type to the position side its firing implies.
// Oversold and breakout style signals buy; overbought style signals sell.
func entrySide(signalType types.SignalType) types.Side {
	switch signalType {
	case types.SignalOscillatorAbove, types.SignalCrossoverBearish, types.SignalPriceAbove:
		return types.SideShort
	default:
		return types.SideLong
	}
}

func (s *SignalStrategy) Name() string {
	return "signal:" + string(s.def.SignalType)
}

func (s *SignalStrategy) Decide(candles []types.Candle, index int) (Decision, error) {
	prefix := candles[:index+1]

	var result indicator.Result

	if s.def.IsIndicatorBased() {
		compute, err := s.indicators.Get(s.def.Indicator)
		if err != nil {
			return Decision{}, err
		}

		result, err = compute(indicator.InputFromCandles(prefix), s.def.IndicatorArgs)
		if err != nil {
			// Not enough bars yet for the indicator's warm-up.
			if errors.HasCode(err, errors.ErrCodeInsufficientData) {
				return Decision{Action: ActionHold}, nil
			}

			return Decision{}, err
		}
	}

	dataModel, err := signal.BuildDataModel(s.def.SignalType, result, prefix)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientData) {
			return Decision{Action: ActionHold}, nil
		}

		return Decision{}, err
	}

	predicate, err := s.predicates.Get(s.def.SignalType)
	if err != nil {
		return Decision{}, err
	}

	verdict, err := predicate(dataModel, s.def)
	if err != nil {
		return Decision{}, err
	}

	if !verdict.Signal {
		return Decision{Action: ActionHold}, nil
	}

	action := ActionBuy
	if s.side == types.SideShort {
		action = ActionSell
	}

	return Decision{Action: action, Confidence: 1, Reason: verdict.Label}, nil
}

// WeightedScorer blends several indicator readings into one score in [-1, 1]
// and trades when the score clears the configured buy or sell threshold.
// Positive scores favor buying, negative favor selling.
type WeightedScorer struct {
	indicators *indicator.Registry

	rsiWeight   float64
	macdWeight  float64
	trendWeight float64

	rsiPeriod   int
	trendPeriod int

	buyThreshold  float64
	sellThreshold float64
}

// NewWeightedScorer builds the default three-component scorer: RSI reversion,
// MACD histogram direction, and close-versus-SMA trend.
func NewWeightedScorer(indicators *indicator.Registry, cfg Config) *WeightedScorer {
	return &WeightedScorer{
		indicators:    indicators,
		rsiWeight:     0.4,
		macdWeight:    0.35,
		trendWeight:   0.25,
		rsiPeriod:     14,
		trendPeriod:   20,
		buyThreshold:  cfg.BuyThreshold,
		sellThreshold: cfg.SellThreshold,
	}
}

func (w *WeightedScorer) Name() string {
	return "weighted_scorer"
}

func (w *WeightedScorer) Decide(candles []types.Candle, index int) (Decision, error) {
	prefix := candles[:index+1]
	input := indicator.InputFromCandles(prefix)

	total := 0.0
	weight := 0.0

	if score, ok, err := w.rsiScore(input); err != nil {
		return Decision{}, err
	} else if ok {
		total += w.rsiWeight * score
		weight += w.rsiWeight
	}

	if score, ok, err := w.macdScore(input); err != nil {
		return Decision{}, err
	} else if ok {
		total += w.macdWeight * score
		weight += w.macdWeight
	}

	if score, ok, err := w.trendScore(input); err != nil {
		return Decision{}, err
	} else if ok {
		total += w.trendWeight * score
		weight += w.trendWeight
	}

	if weight == 0 {
		return Decision{Action: ActionHold}, nil
	}

	score := total / weight

	switch {
	case score >= w.buyThreshold:
		return Decision{Action: ActionBuy, Confidence: math.Abs(score), Reason: "composite score bullish"}, nil
	case score <= w.sellThreshold:
		return Decision{Action: ActionSell, Confidence: math.Abs(score), Reason: "composite score bearish"}, nil
	default:
		return Decision{Action: ActionHold, Confidence: math.Abs(score)}, nil
	}
}

// rsiScore maps RSI to [-1, 1]: oversold readings score positive.
func (w *WeightedScorer) rsiScore(input indicator.Input) (float64, bool, error) {
	compute, err := w.indicators.Get(types.IndicatorTypeRSI)
	if err != nil {
		return 0, false, err
	}

	result, err := compute(input, indicator.Args{Period: w.rsiPeriod})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientData) {
			return 0, false, nil
		}

		return 0, false, err
	}

	value, ok := indicator.LastDefined(result.Line)
	if !ok {
		return 0, false, nil
	}

	return (50 - value) / 50, true, nil
}

// macdScore reads the histogram sign: positive momentum scores +1.
func (w *WeightedScorer) macdScore(input indicator.Input) (float64, bool, error) {
	compute, err := w.indicators.Get(types.IndicatorTypeMACD)
	if err != nil {
		return 0, false, err
	}

	result, err := compute(input, indicator.Args{})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientData) {
			return 0, false, nil
		}

		return 0, false, err
	}

	histogram, ok := indicator.LastDefined(result.Lines[indicator.MACDHistogram])
	if !ok {
		return 0, false, nil
	}

	if histogram > 0 {
		return 1, true, nil
	}

	if histogram < 0 {
		return -1, true, nil
	}

	return 0, true, nil
}

// trendScore compares the last close to its moving average.
func (w *WeightedScorer) trendScore(input indicator.Input) (float64, bool, error) {
	compute, err := w.indicators.Get(types.IndicatorTypeSMA)
	if err != nil {
		return 0, false, err
	}

	result, err := compute(input, indicator.Args{Period: w.trendPeriod})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientData) {
			return 0, false, nil
		}

		return 0, false, err
	}

	mean, ok := indicator.LastDefined(result.Line)
	if !ok || len(input.Close) == 0 {
		return 0, false, nil
	}

	if input.Close[len(input.Close)-1] > mean {
		return 1, true, nil
	}

	return -1, true, nil
}
