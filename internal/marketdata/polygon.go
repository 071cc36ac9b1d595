package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// PolygonProvider fetches historical aggregates from Polygon. It has no
// streaming support; use it for equities backtest data.
type PolygonProvider struct {
	client *polygon.Client
}

// NewPolygonProvider creates a Polygon-backed historical provider.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon api key is required")
	}

	return &PolygonProvider{
		client: polygon.New(apiKey),
	}, nil
}

// Klines implements HistoricalProvider. Polygon delivers aggregates
// newest-first when ordered descending; the result is normalized to
// ascending order before returning.
func (p *PolygonProvider) Klines(ctx context.Context, symbol string, interval types.Interval, limit int) ([]types.Candle, error) {
	multiplier, timespan, err := intervalToPolygon(interval)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	from := now.Add(-time.Duration(limit) * interval.Duration())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(now),
	}.WithOrder(models.Desc).WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	candles := make([]types.Candle, 0, limit)

	for iter.Next() {
		if len(candles) >= limit {
			break
		}

		agg := iter.Item()
		candles = append(candles, types.Candle{
			Symbol:    symbol,
			Timestamp: time.Time(agg.Timestamp).UTC(),
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "failed to list %s aggregates", symbol)
	}

	types.SortCandlesAscending(candles)

	return candles, nil
}

func intervalToPolygon(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.Interval1d:
		return 1, models.Day, nil
	case types.Interval1w:
		return 1, models.Week, nil
	case types.Interval1M:
		return 1, models.Month, nil
	default:
		minutes := interval.Minutes()
		if minutes == 0 {
			return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", interval)
		}

		if minutes%60 == 0 {
			return minutes / 60, models.Hour, nil
		}

		return minutes, models.Minute, nil
	}
}
