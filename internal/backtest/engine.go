package backtest

import (
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Result is the artifact of one simulation run.
type Result struct {
	RunID    string              `json:"run_id"`
	Symbol   string              `json:"symbol"`
	Strategy string              `json:"strategy"`
	Config   Config              `json:"config"`
	Metrics  Metrics             `json:"metrics"`
	Trades   []types.Trade       `json:"trades"`
	Equity   []types.EquityPoint `json:"equity"`
	// NoTrades marks a run where no entry ever qualified. A normal outcome,
	// reported explicitly instead of leaving zeroed metrics ambiguous.
	NoTrades bool `json:"no_trades"`
}

// Engine replays a strategy over an ordered candle series. One pass, at most
// one open position at any bar, no shared state between runs.
type Engine struct {
	config       Config
	strategy     Strategy
	logger       *logger.Logger
	showProgress bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProgress renders a terminal progress bar while replaying.
func WithProgress() EngineOption {
	return func(e *Engine) {
		e.showProgress = true
	}
}

// NewEngine validates the configuration and wires an engine.
func NewEngine(cfg Config, strategy Strategy, log *logger.Logger, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if strategy == nil {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "a strategy is required")
	}

	e := &Engine{config: cfg, strategy: strategy, logger: log, showProgress: false}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Run simulates the strategy over the candles, which must be ordered
// ascending by timestamp. An empty series is a reportable no-trades outcome.
func (e *Engine) Run(candles []types.Candle) (*Result, error) {
	result := &Result{
		RunID:    uuid.New().String(),
		Strategy: e.strategy.Name(),
		Config:   e.config,
	}

	if len(candles) > 0 {
		result.Symbol = candles[0].Symbol
	}

	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp.Before(candles[i-1].Timestamp) {
			return nil, errors.Newf(errors.ErrCodeBacktestNoData, "candles out of order at index %d", i)
		}
	}

	capital := decimal.NewFromFloat(e.config.InitialCapital)
	feeRate := decimal.NewFromFloat(e.config.FeeRate)

	var position *types.Position

	var invested decimal.Decimal

	var progress *progressbar.ProgressBar
	if e.showProgress && len(candles) > 0 {
		progress = progressbar.Default(int64(len(candles)))
	}

	for i := range candles {
		bar := candles[i]

		if progress != nil {
			_ = progress.Add(1)
		}

		result.Equity = append(result.Equity, e.markToMarket(bar, capital, position, invested))

		if position != nil {
			exitPrice, reason, exited := e.checkExit(candles, i, position)
			if exited {
				trade, proceeds := closePosition(position, invested, exitPrice, exitTimeFor(candles, i, reason), feeRate, reason)
				capital = capital.Add(proceeds)
				result.Trades = append(result.Trades, trade)
				position = nil

				e.logger.Debug("position closed",
					zap.String("reason", string(reason)),
					zap.Float64("profit", trade.Profit),
				)
			}

			continue
		}

		decision, err := e.strategy.Decide(candles, i)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeEvaluationFailed, err, "strategy %s failed at bar %d", e.strategy.Name(), i)
		}

		if decision.Action == ActionHold || decision.Confidence < e.config.MinConfidence {
			continue
		}

		position, invested = e.openPosition(bar, decision, capital, feeRate)
		capital = capital.Sub(invested)
	}

	if position != nil {
		last := candles[len(candles)-1]
		trade, proceeds := closePosition(position, invested, last.Close, last.Timestamp, feeRate, types.ExitEndOfData)
		capital = capital.Add(proceeds)
		result.Trades = append(result.Trades, trade)
	}

	final, _ := capital.Float64()
	result.Metrics = computeMetrics(e.config.InitialCapital, final, result.Trades, result.Equity)
	result.NoTrades = len(result.Trades) == 0

	return result, nil
}

// markToMarket samples the account value at bar open state: flat capital, or
// capital plus the position's current liquidation value.
func (e *Engine) markToMarket(bar types.Candle, capital decimal.Decimal, position *types.Position, invested decimal.Decimal) types.EquityPoint {
	value := capital

	if position != nil {
		quantity := decimal.NewFromFloat(position.Quantity)
		price := decimal.NewFromFloat(bar.Close)
		entry := decimal.NewFromFloat(position.EntryPrice)

		if position.Side == types.SideLong {
			value = capital.Add(quantity.Mul(price))
		} else {
			pnl := quantity.Mul(entry.Sub(price))
			value = capital.Add(invested).Add(pnl)
		}
	}

	v, _ := value.Float64()

	return types.EquityPoint{Timestamp: bar.Timestamp, Value: v, Price: bar.Close}
}

// checkExit applies the exit rules in priority order: stop-loss, then
// take-profit, then strategy reversal at the next bar's close.
func (e *Engine) checkExit(candles []types.Candle, i int, position *types.Position) (float64, types.ExitReason, bool) {
	bar := candles[i]

	if position.Side == types.SideLong {
		if bar.Low <= position.StopLoss {
			return position.StopLoss, types.ExitStopLoss, true
		}

		if bar.High >= position.TakeProfit {
			return position.TakeProfit, types.ExitTakeProfit, true
		}
	} else {
		if bar.High >= position.StopLoss {
			return position.StopLoss, types.ExitStopLoss, true
		}

		if bar.Low <= position.TakeProfit {
			return position.TakeProfit, types.ExitTakeProfit, true
		}
	}

	// Reversal needs one lookahead bar to exit at its close.
	if i+1 >= len(candles) {
		return 0, "", false
	}

	decision, err := e.strategy.Decide(candles, i)
	if err != nil {
		e.logger.Warn("strategy failed during exit check", zap.Int("bar", i), zap.Error(err))

		return 0, "", false
	}

	if decision.Confidence < e.config.MinConfidence {
		return 0, "", false
	}

	opposing := (position.Side == types.SideLong && decision.Action == ActionSell) ||
		(position.Side == types.SideShort && decision.Action == ActionBuy)
	if opposing {
		return candles[i+1].Close, types.ExitReversal, true
	}

	return 0, "", false
}

func exitTimeFor(candles []types.Candle, i int, reason types.ExitReason) time.Time {
	if reason == types.ExitReversal && i+1 < len(candles) {
		return candles[i+1].Timestamp
	}

	return candles[i].Timestamp
}

// openPosition commits the configured fraction of capital at the bar's close,
// net of the entry fee, with stop and target at percentage offsets.
func (e *Engine) openPosition(bar types.Candle, decision Decision, capital decimal.Decimal, feeRate decimal.Decimal) (*types.Position, decimal.Decimal) {
	invested := capital.Mul(decimal.NewFromFloat(e.config.PositionSize))
	fee := invested.Mul(feeRate)
	entry := decimal.NewFromFloat(bar.Close)
	quantity := invested.Sub(fee).Div(entry)

	side := types.SideLong
	stop := bar.Close * (1 - e.config.StopLossPct)
	target := bar.Close * (1 + e.config.TakeProfitPct)

	if decision.Action == ActionSell {
		side = types.SideShort
		stop = bar.Close * (1 + e.config.StopLossPct)
		target = bar.Close * (1 - e.config.TakeProfitPct)
	}

	q, _ := quantity.Float64()

	return &types.Position{
		Symbol:     bar.Symbol,
		Side:       side,
		EntryPrice: bar.Close,
		EntryTime:  bar.Timestamp,
		Quantity:   q,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: decision.Confidence,
	}, invested
}

// closePosition converts an open position into a trade and returns the net
// proceeds credited back to capital. The trade's profit is exactly the
// capital delta of the round trip, so final capital always equals initial
// capital plus the sum of trade profits.
func closePosition(position *types.Position, invested decimal.Decimal, exitPrice float64, exitTime time.Time, feeRate decimal.Decimal, reason types.ExitReason) (types.Trade, decimal.Decimal) {
	quantity := decimal.NewFromFloat(position.Quantity)
	entry := decimal.NewFromFloat(position.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)

	exitFee := quantity.Mul(exit).Mul(feeRate)

	var proceeds decimal.Decimal

	if position.Side == types.SideLong {
		proceeds = quantity.Mul(exit).Sub(exitFee)
	} else {
		entryValue := quantity.Mul(entry)
		pnl := entryValue.Sub(quantity.Mul(exit))
		proceeds = invested.Add(pnl).Sub(exitFee)
	}

	profit := proceeds.Sub(invested)

	profitF, _ := profit.Float64()
	investedF, _ := invested.Float64()

	profitPercent := 0.0
	if investedF != 0 {
		profitPercent = profitF / investedF * 100
	}

	return types.Trade{
		Symbol:        position.Symbol,
		Side:          position.Side,
		EntryPrice:    position.EntryPrice,
		EntryTime:     position.EntryTime,
		ExitPrice:     exitPrice,
		ExitTime:      exitTime,
		Quantity:      position.Quantity,
		Profit:        profitF,
		ProfitPercent: profitPercent,
		ExitReason:    reason,
	}, proceeds
}
