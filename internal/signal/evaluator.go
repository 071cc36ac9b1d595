package signal

import (
	"context"

	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/bundle"
	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Default bundle shape used when a definition does not override it.
const (
	defaultIterations     = 1
	defaultCandlesPerPull = 200
)

// Evaluator evaluates one due definition against current market data:
// fetch the indicator bundle, compute the indicator, adapt its output into
// the predicate's canonical data model, and invoke the predicate.
type Evaluator struct {
	cache      *bundle.Cache
	indicators *indicator.Registry
	predicates *PredicateRegistry
	logger     *logger.Logger
}

// NewEvaluator wires an evaluator over the given cache and registries.
func NewEvaluator(cache *bundle.Cache, indicators *indicator.Registry, predicates *PredicateRegistry, log *logger.Logger) *Evaluator {
	return &Evaluator{
		cache:      cache,
		indicators: indicators,
		predicates: predicates,
		logger:     log,
	}
}

// Evaluate runs the definition's predicate against fresh data and returns
// its verdict. A predicate panic is recovered and surfaced as an error so a
// single bad rule cannot abort a scheduler tick.
func (e *Evaluator) Evaluate(ctx context.Context, def *Definition) (result types.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodePredicatePanic, "predicate for %q panicked: %v", def.SignalType, r)
			e.logger.Error("predicate panic",
				zap.String("signal_id", def.ID),
				zap.String("signal_type", string(def.SignalType)),
				zap.Any("panic", r),
			)
		}
	}()

	predicate, err := e.predicates.Get(def.SignalType)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	key := bundle.Key{
		Category:       string(def.SignalType.Family()),
		Symbol:         def.Symbol,
		Interval:       def.Timeframe,
		Iterations:     defaultIterations,
		CandlesPerPull: defaultCandlesPerPull,
	}

	b, age, err := e.cache.Fetch(ctx, key)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	e.logger.Debug("bundle fetched",
		zap.String("key", key.String()),
		zap.Duration("age", age),
	)

	var indicatorResult indicator.Result

	if def.IsIndicatorBased() {
		compute, err := e.indicators.Get(def.Indicator)
		if err != nil {
			return types.EvaluationResult{}, err
		}

		indicatorResult, err = compute(b.Input, def.IndicatorArgs)
		if err != nil {
			return types.EvaluationResult{}, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute %s", def.Indicator)
		}
	}

	dataModel, err := BuildDataModel(def.SignalType, indicatorResult, b.RawCandles)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	return predicate(dataModel, def)
}
