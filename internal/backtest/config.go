// Package backtest replays trading rules over historical candles with a
// deterministic single-position state machine and reports trades, an equity
// curve, and performance metrics.
package backtest

import (
	"github.com/go-playground/validator/v10"

	"github.com/signalforge-lab/signalforge/pkg/errors"
)

var validate = validator.New()

// Config holds the risk and sizing parameters of one simulation run.
type Config struct {
	// InitialCapital is the starting account balance.
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital" validate:"required,gt=0"`
	// PositionSize is the fraction of current capital committed per entry.
	PositionSize float64 `json:"position_size" yaml:"position_size" validate:"required,gt=0,lte=1"`
	// FeeRate is the proportional fee charged on entry and exit notional.
	FeeRate float64 `json:"fee_rate" yaml:"fee_rate" validate:"gte=0,lt=1"`
	// StopLossPct is the adverse move from entry that closes the position.
	StopLossPct float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" validate:"required,gt=0,lt=1"`
	// TakeProfitPct is the favorable move from entry that closes the position.
	TakeProfitPct float64 `json:"take_profit_pct" yaml:"take_profit_pct" validate:"required,gt=0"`
	// MinConfidence gates entries: decisions below it are ignored.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" validate:"gte=0,lte=1"`
	// BuyThreshold is the composite score at or above which a scorer strategy buys.
	BuyThreshold float64 `json:"buy_threshold" yaml:"buy_threshold"`
	// SellThreshold is the composite score at or below which a scorer strategy sells.
	SellThreshold float64 `json:"sell_threshold" yaml:"sell_threshold"`
}

// DefaultConfig returns conservative paper-trading defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10000,
		PositionSize:   0.1,
		FeeRate:        0.001,
		StopLossPct:    0.05,
		TakeProfitPct:  0.10,
		MinConfidence:  0.5,
		BuyThreshold:   0.5,
		SellThreshold:  -0.5,
	}
}

// Validate checks the configuration against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest configuration", err)
	}

	if c.BuyThreshold <= c.SellThreshold {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "buy threshold %g must exceed sell threshold %g", c.BuyThreshold, c.SellThreshold)
	}

	return nil
}
