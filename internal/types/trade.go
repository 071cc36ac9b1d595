package types

import "time"

// Side is the direction of a simulated position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ExitReason records why a simulated position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitReversal   ExitReason = "reversal"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Position is an open simulated position. At most one exists per backtest run.
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	Quantity   float64   `json:"quantity"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Confidence float64   `json:"confidence"`
}

// Trade is a closed position.
type Trade struct {
	Symbol        string     `json:"symbol"`
	Side          Side       `json:"side"`
	EntryPrice    float64    `json:"entry_price"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitPrice     float64    `json:"exit_price"`
	ExitTime      time.Time  `json:"exit_time"`
	Quantity      float64    `json:"quantity"`
	Profit        float64    `json:"profit"`
	ProfitPercent float64    `json:"profit_percent"`
	ExitReason    ExitReason `json:"exit_reason"`
}

// EquityPoint is one mark-to-market sample of the simulated account,
// taken once per bar before that bar's entry/exit logic runs.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Price     float64   `json:"price"`
}
