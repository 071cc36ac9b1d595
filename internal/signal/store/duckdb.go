package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

var signalColumns = []string{
	"id", "symbol", "timeframe", "indicator", "signal_type", "value",
	"indicator_args", "is_active", "trigger_count", "max_trigger_times",
	"next_invocation", "last_executed", "created_on", "updated_on",
}

// DuckDBStorage is a DuckDB-backed Storage. It also persists simulated
// positions produced by backtest runs.
type DuckDBStorage struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStorage opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func NewDuckDBStorage(path string, log *logger.Logger) (*DuckDBStorage, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to open signal store", err)
	}

	s := &DuckDBStorage{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *DuckDBStorage) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			timeframe TEXT,
			indicator TEXT,
			signal_type TEXT,
			value DOUBLE,
			indicator_args TEXT,
			is_active BOOLEAN,
			trigger_count INTEGER,
			max_trigger_times INTEGER,
			next_invocation TIMESTAMP,
			last_executed TIMESTAMP,
			created_on TIMESTAMP,
			updated_on TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to create signals table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sim_positions (
			run_id TEXT,
			symbol TEXT,
			side TEXT,
			entry_price DOUBLE,
			entry_time TIMESTAMP,
			exit_price DOUBLE,
			exit_time TIMESTAMP,
			quantity DOUBLE,
			profit DOUBLE,
			profit_percent DOUBLE,
			exit_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to create sim_positions table", err)
	}

	return nil
}

// Close releases the underlying database.
func (s *DuckDBStorage) Close() error {
	return s.db.Close()
}

// Create implements Storage.
func (s *DuckDBStorage) Create(ctx context.Context, def signal.Definition) (bool, error) {
	existing, err := s.Get(ctx, def.ID)
	if err == nil && existing.ID == def.ID {
		s.logger.Debug("signal already exists, create is a no-op", zap.String("id", def.ID))

		return false, nil
	}

	if err != nil && !errors.HasCode(err, errors.ErrCodeSignalNotFound) {
		return false, err
	}

	return true, s.Upsert(ctx, def)
}

// Upsert implements Storage.
func (s *DuckDBStorage) Upsert(ctx context.Context, def signal.Definition) error {
	args, err := json.Marshal(def.IndicatorArgs)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to marshal indicator args", err)
	}

	query := s.sq.
		Insert("signals").
		Columns(signalColumns...).
		Values(
			def.ID, def.Symbol, string(def.Timeframe), string(def.Indicator),
			string(def.SignalType), def.Value, string(args), def.IsActive,
			def.TriggerCount, def.MaxTriggerTimes, def.NextInvocation,
			def.LastExecuted, def.CreatedOn, def.UpdatedOn,
		)

	sqlStr, sqlArgs, err := query.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to build upsert", err)
	}

	// Delete-then-insert must be atomic or a failure between the two
	// statements drops the definition.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to begin upsert transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, def.ID); err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to replace signal", err)
	}

	if _, err := tx.ExecContext(ctx, sqlStr, sqlArgs...); err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to upsert signal", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to commit upsert", err)
	}

	return nil
}

// Get implements Storage.
func (s *DuckDBStorage) Get(ctx context.Context, id string) (signal.Definition, error) {
	query := s.sq.Select(signalColumns...).From("signals").Where(squirrel.Eq{"id": id})

	defs, err := s.queryDefinitions(ctx, query)
	if err != nil {
		return signal.Definition{}, err
	}

	if len(defs) == 0 {
		return signal.Definition{}, errors.Newf(errors.ErrCodeSignalNotFound, "no signal with id %s", id)
	}

	return defs[0], nil
}

// Delete implements Storage.
func (s *DuckDBStorage) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to delete signal", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return errors.Newf(errors.ErrCodeSignalNotFound, "no signal with id %s", id)
	}

	return nil
}

// DeleteAll implements Storage.
func (s *DuckDBStorage) DeleteAll(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count signals", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM signals`); err != nil {
		return 0, errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to delete signals", err)
	}

	return count, nil
}

// List implements Storage.
func (s *DuckDBStorage) List(ctx context.Context) ([]signal.Definition, error) {
	query := s.sq.Select(signalColumns...).From("signals").OrderBy("created_on ASC")

	return s.queryDefinitions(ctx, query)
}

// DueSignals implements Storage.
func (s *DuckDBStorage) DueSignals(ctx context.Context, now time.Time) ([]signal.Definition, error) {
	query := s.sq.
		Select(signalColumns...).
		From("signals").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.LtOrEq{"next_invocation": now}).
		OrderBy("next_invocation ASC")

	return s.queryDefinitions(ctx, query)
}

// SaveTrades persists the closed positions of one backtest run.
func (s *DuckDBStorage) SaveTrades(ctx context.Context, runID string, trades []types.Trade) error {
	for _, t := range trades {
		query := s.sq.
			Insert("sim_positions").
			Columns("run_id", "symbol", "side", "entry_price", "entry_time",
				"exit_price", "exit_time", "quantity", "profit", "profit_percent", "exit_reason").
			Values(runID, t.Symbol, string(t.Side), t.EntryPrice, t.EntryTime,
				t.ExitPrice, t.ExitTime, t.Quantity, t.Profit, t.ProfitPercent, string(t.ExitReason))

		sqlStr, args, err := query.ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to build trade insert", err)
		}

		if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
			return errors.Wrap(errors.ErrCodeSignalStoreFailed, "failed to save trade", err)
		}
	}

	return nil
}

func (s *DuckDBStorage) queryDefinitions(ctx context.Context, query squirrel.SelectBuilder) ([]signal.Definition, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build signal query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query signals", err)
	}
	defer rows.Close()

	var defs []signal.Definition

	for rows.Next() {
		var (
			def       signal.Definition
			timeframe string
			ind       string
			sigType   string
			rawArgs   string
		)

		if err := rows.Scan(
			&def.ID, &def.Symbol, &timeframe, &ind, &sigType, &def.Value,
			&rawArgs, &def.IsActive, &def.TriggerCount, &def.MaxTriggerTimes,
			&def.NextInvocation, &def.LastExecuted, &def.CreatedOn, &def.UpdatedOn,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan signal row", err)
		}

		def.Timeframe = types.Interval(timeframe)
		def.Indicator = types.IndicatorType(ind)
		def.SignalType = types.SignalType(sigType)

		var parsedArgs indicator.Args
		if err := json.Unmarshal([]byte(rawArgs), &parsedArgs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to parse indicator args", err)
		}

		def.IndicatorArgs = parsedArgs
		def.NextInvocation = def.NextInvocation.UTC()
		def.LastExecuted = def.LastExecuted.UTC()
		def.CreatedOn = def.CreatedOn.UTC()
		def.UpdatedOn = def.UpdatedOn.UTC()

		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate signal rows", err)
	}

	return defs, nil
}
