package types

import (
	"sort"
	"time"
)

// Candle is one OHLCV bar for a symbol and interval.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Equal reports whether two candles carry the same timestamp and OHLCV fields.
// Symbol is deliberately excluded: a buffer only ever holds one symbol.
func (c Candle) Equal(other Candle) bool {
	return c.Timestamp.Equal(other.Timestamp) &&
		c.Open == other.Open &&
		c.High == other.High &&
		c.Low == other.Low &&
		c.Close == other.Close &&
		c.Volume == other.Volume
}

// SortCandlesAscending orders candles by timestamp ascending in place.
// Historical APIs often deliver bars newest-first; every consumer in this
// repository requires ascending order.
func SortCandlesAscending(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
}

// Tick is a single candle delta delivered by the market data transport.
// WindowStart and WindowEnd describe the bar window the delta belongs to;
// a tick whose window has already closed can never be re-delivered with
// different values.
type Tick struct {
	Symbol      string
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	Timestamp   time.Time
	WindowStart time.Time
	WindowEnd   time.Time
}

// Candle converts the tick into a candle keyed by its timestamp.
func (t Tick) Candle() Candle {
	return Candle{
		Symbol:    t.Symbol,
		Timestamp: t.Timestamp,
		Open:      t.Open,
		High:      t.High,
		Low:       t.Low,
		Close:     t.Close,
		Volume:    t.Volume,
	}
}
