package marketdata

import (
	"context"
	"iter"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// BinanceProvider fetches candles from Binance. Historical pulls use the REST
// klines endpoint; Stream opens one websocket kline subscription per call.
type BinanceProvider struct {
	client *binance.Client
	logger *logger.Logger
}

// NewBinanceProvider creates a provider backed by the public Binance API.
// Market data endpoints require no credentials.
func NewBinanceProvider(log *logger.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
		logger: log,
	}
}

// Klines implements HistoricalProvider.
func (p *BinanceProvider) Klines(ctx context.Context, symbol string, interval types.Interval, limit int) ([]types.Candle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(interval)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s %s klines", symbol, interval)
	}

	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		candle, err := klineToCandle(symbol, k)
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	types.SortCandlesAscending(candles)

	return candles, nil
}

// Stream implements StreamProvider. The subscription is torn down when the
// context is cancelled or the consumer stops iterating.
func (p *BinanceProvider) Stream(ctx context.Context, symbol string, interval types.Interval) iter.Seq2[types.Tick, error] {
	return func(yield func(types.Tick, error) bool) {
		ticks := make(chan types.Tick, 64)
		errs := make(chan error, 1)

		handler := func(event *binance.WsKlineEvent) {
			tick, err := wsKlineToTick(event)
			if err != nil {
				p.logger.Warn("dropping malformed kline event", zap.Error(err))

				return
			}

			select {
			case ticks <- tick:
			case <-ctx.Done():
			}
		}

		errHandler := func(err error) {
			select {
			case errs <- errors.Wrap(errors.ErrCodeStreamClosed, "binance kline stream failed", err):
			default:
			}
		}

		doneC, stopC, err := binance.WsKlineServe(symbol, string(interval), handler, errHandler)
		if err != nil {
			yield(types.Tick{}, errors.Wrap(errors.ErrCodeStreamClosed, "failed to open binance kline stream", err))

			return
		}

		defer close(stopC)

		for {
			select {
			case <-ctx.Done():
				return
			case <-doneC:
				yield(types.Tick{}, errors.New(errors.ErrCodeStreamClosed, "binance kline stream ended"))

				return
			case err := <-errs:
				if !yield(types.Tick{}, err) {
					return
				}
			case tick := <-ticks:
				if !yield(tick, nil) {
					return
				}
			}
		}
	}
}

func klineToCandle(symbol string, k *binance.Kline) (types.Candle, error) {
	fields := [5]string{k.Open, k.High, k.Low, k.Close, k.Volume}

	var parsed [5]float64

	for i, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candle{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse kline field %q", raw)
		}

		parsed[i] = v
	}

	return types.Candle{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      parsed[0],
		High:      parsed[1],
		Low:       parsed[2],
		Close:     parsed[3],
		Volume:    parsed[4],
	}, nil
}

func wsKlineToTick(event *binance.WsKlineEvent) (types.Tick, error) {
	k := event.Kline
	fields := [5]string{k.Open, k.High, k.Low, k.Close, k.Volume}

	var parsed [5]float64

	for i, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Tick{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse kline event field %q", raw)
		}

		parsed[i] = v
	}

	start := time.UnixMilli(k.StartTime).UTC()

	return types.Tick{
		Symbol:      event.Symbol,
		Open:        parsed[0],
		High:        parsed[1],
		Low:         parsed[2],
		Close:       parsed[3],
		Volume:      parsed[4],
		Timestamp:   start,
		WindowStart: start,
		// Binance reports the last millisecond of the window.
		WindowEnd: time.UnixMilli(k.EndTime + 1).UTC(),
	}, nil
}
