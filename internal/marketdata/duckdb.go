package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// DuckDBSource serves historical candles from a local parquet or CSV file
// through an in-memory DuckDB view. It backs offline backtests and warms the
// indicator bundle cache without touching the network.
type DuckDBSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory DuckDB instance and creates a candles
// view over the given data file. Supported extensions: .parquet, .csv.
func NewDuckDBSource(dataPath string, log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoricalLoadFailed, "failed to open duckdb", err)
	}

	var reader string

	switch filepath.Ext(dataPath) {
	case ".parquet":
		reader = fmt.Sprintf("read_parquet('%s')", dataPath)
	case ".csv":
		reader = fmt.Sprintf("read_csv_auto('%s')", dataPath)
	default:
		db.Close()

		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported data file %q", dataPath)
	}

	if _, err := db.Exec(fmt.Sprintf(`CREATE VIEW candles AS SELECT * FROM %s;`, reader)); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeHistoricalLoadFailed, err, "failed to create candles view over %s", dataPath)
	}

	log.Debug("duckdb candle source initialized", zap.String("path", dataPath))

	return &DuckDBSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Klines implements HistoricalProvider. The newest limit candles are selected
// descending and normalized to ascending order.
func (d *DuckDBSource) Klines(ctx context.Context, symbol string, interval types.Interval, limit int) ([]types.Candle, error) {
	query := d.sq.
		Select("symbol", "timestamp", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("timestamp DESC").
		Limit(uint64(limit))

	candles, err := d.queryCandles(ctx, query)
	if err != nil {
		return nil, err
	}

	types.SortCandlesAscending(candles)

	return candles, nil
}

// Range returns candles for a symbol between start and end (inclusive),
// ascending. Unset bounds are unbounded.
func (d *DuckDBSource) Range(ctx context.Context, symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Candle, error) {
	query := d.sq.
		Select("symbol", "timestamp", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("timestamp ASC")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"timestamp": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"timestamp": end.Unwrap()})
	}

	return d.queryCandles(ctx, query)
}

// Count returns the number of candles stored for a symbol.
func (d *DuckDBSource) Count(ctx context.Context, symbol string) (int, error) {
	sqlStr, args, err := d.sq.
		Select("COUNT(*)").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count candles", err)
	}

	return count, nil
}

// Close releases the underlying database.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}

func (d *DuckDBSource) queryCandles(ctx context.Context, query squirrel.SelectBuilder) ([]types.Candle, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build candle query", err)
	}

	rows, err := d.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err)
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var c types.Candle
		if err := rows.Scan(&c.Symbol, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle row", err)
		}

		c.Timestamp = c.Timestamp.UTC()
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate candle rows", err)
	}

	return candles, nil
}
