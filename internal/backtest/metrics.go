package backtest

import (
	"math"

	"github.com/signalforge-lab/signalforge/internal/types"
)

// Metrics summarizes a finished run. ProfitFactor is +Inf when there are
// wins and no losses, and 0 when there are losses and no wins.
type Metrics struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalProfit    float64 `json:"total_profit"`
	TotalReturn    float64 `json:"total_return"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	BestTrade      float64 `json:"best_trade"`
	WorstTrade     float64 `json:"worst_trade"`
}

func computeMetrics(initial, final float64, trades []types.Trade, equity []types.EquityPoint) Metrics {
	m := Metrics{
		TotalTrades:    len(trades),
		InitialCapital: initial,
		FinalCapital:   final,
		MaxDrawdown:    maxDrawdown(equity),
	}

	if initial != 0 {
		m.TotalReturn = (final - initial) / initial * 100
	}

	if len(trades) == 0 {
		return m
	}

	winSum := 0.0
	lossSum := 0.0
	m.BestTrade = trades[0].ProfitPercent
	m.WorstTrade = trades[0].ProfitPercent

	for _, trade := range trades {
		m.TotalProfit += trade.Profit

		if trade.Profit > 0 {
			m.WinningTrades++
			winSum += trade.Profit
		} else if trade.Profit < 0 {
			m.LosingTrades++
			lossSum += trade.Profit
		}

		if trade.ProfitPercent > m.BestTrade {
			m.BestTrade = trade.ProfitPercent
		}

		if trade.ProfitPercent < m.WorstTrade {
			m.WorstTrade = trade.ProfitPercent
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100

	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}

	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}

	switch {
	case m.LosingTrades == 0 && m.WinningTrades > 0:
		m.ProfitFactor = math.Inf(1)
	case m.WinningTrades == 0:
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = winSum / math.Abs(lossSum)
	}

	return m
}

// maxDrawdown is the largest peak-to-trough decline over the equity curve,
// as a fraction of the peak. Zero for a non-decreasing curve.
func maxDrawdown(equity []types.EquityPoint) float64 {
	peak := 0.0
	worst := 0.0

	for _, point := range equity {
		if point.Value > peak {
			peak = point.Value
		}

		if peak > 0 {
			drawdown := (peak - point.Value) / peak
			if drawdown > worst {
				worst = drawdown
			}
		}
	}

	return worst
}
