package marketdata

import (
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

func TestKlineToCandle(t *testing.T) {
	kline := &binance.Kline{
		OpenTime: 1714557600000,
		Open:     "100.5",
		High:     "105.25",
		Low:      "99.75",
		Close:    "102.0",
		Volume:   "1234.5",
	}

	candle, err := klineToCandle("BTCUSDT", kline)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", candle.Symbol)
	assert.Equal(t, time.UnixMilli(1714557600000).UTC(), candle.Timestamp)
	assert.Equal(t, 100.5, candle.Open)
	assert.Equal(t, 105.25, candle.High)
	assert.Equal(t, 99.75, candle.Low)
	assert.Equal(t, 102.0, candle.Close)
	assert.Equal(t, 1234.5, candle.Volume)
}

func TestKlineToCandleRejectsMalformedField(t *testing.T) {
	kline := &binance.Kline{
		OpenTime: 1714557600000,
		Open:     "100.5",
		High:     "not-a-number",
		Low:      "99.75",
		Close:    "102.0",
		Volume:   "1234.5",
	}

	_, err := klineToCandle("BTCUSDT", kline)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func TestWsKlineToTickWindowBounds(t *testing.T) {
	event := &binance.WsKlineEvent{
		Symbol: "BTCUSDT",
		Kline: binance.WsKline{
			StartTime: 1714557600000,
			// Binance reports the last millisecond of the window.
			EndTime: 1714558499999,
			Open:    "100",
			High:    "101",
			Low:     "99",
			Close:   "100.5",
			Volume:  "42",
		},
	}

	tick, err := wsKlineToTick(event)
	require.NoError(t, err)

	assert.Equal(t, time.UnixMilli(1714557600000).UTC(), tick.WindowStart)
	assert.Equal(t, time.UnixMilli(1714558500000).UTC(), tick.WindowEnd)
	assert.Equal(t, tick.WindowStart, tick.Timestamp)
	assert.Equal(t, 100.5, tick.Close)
}

func TestIntervalToPolygon(t *testing.T) {
	tests := []struct {
		interval   types.Interval
		multiplier int
		timespan   models.Timespan
	}{
		{types.Interval1m, 1, models.Minute},
		{types.Interval15m, 15, models.Minute},
		{types.Interval1h, 1, models.Hour},
		{types.Interval4h, 4, models.Hour},
		{types.Interval1d, 1, models.Day},
		{types.Interval1w, 1, models.Week},
		{types.Interval1M, 1, models.Month},
	}

	for _, tc := range tests {
		multiplier, timespan, err := intervalToPolygon(tc.interval)
		require.NoError(t, err, tc.interval)
		assert.Equal(t, tc.multiplier, multiplier, tc.interval)
		assert.Equal(t, tc.timespan, timespan, tc.interval)
	}

	_, _, err := intervalToPolygon(types.Interval("7m"))
	require.Error(t, err)
}

func TestPolygonProviderRequiresKey(t *testing.T) {
	_, err := NewPolygonProvider("")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingParameter))
}
