// Command signalforge runs the signal engine: live watching with scheduled
// rule evaluation, offline backtesting, and signal rule management.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/signalforge-lab/signalforge/internal/api"
	"github.com/signalforge-lab/signalforge/internal/backtest"
	"github.com/signalforge-lab/signalforge/internal/bundle"
	"github.com/signalforge-lab/signalforge/internal/config"
	"github.com/signalforge-lab/signalforge/internal/indicator"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/market"
	"github.com/signalforge-lab/signalforge/internal/marketdata"
	"github.com/signalforge-lab/signalforge/internal/notifier"
	"github.com/signalforge-lab/signalforge/internal/scheduler"
	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/internal/signal/store"
	"github.com/signalforge-lab/signalforge/internal/types"
)

func main() {
	cmd := &cli.Command{
		Name:  "signalforge",
		Usage: "Candle streaming, signal rules, and backtesting",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
		},
		Commands: []*cli.Command{
			backtestCommand(),
			watchCommand(),
			signalCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the configured file or falls back to defaults.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.LogLevel); err != nil {
		return nil, err
	}

	return logger.NewLoggerWithLevel(level)
}

func openStore(cfg config.Config, log *logger.Logger) (store.Storage, func(), error) {
	if cfg.SignalDBPath == "" {
		return store.NewMemoryStorage(), func() {}, nil
	}

	duck, err := store.NewDuckDBStorage(cfg.SignalDBPath, log)
	if err != nil {
		return nil, nil, err
	}

	return duck, func() { _ = duck.Close() }, nil
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay a signal rule or the composite scorer over stored candles",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data", Usage: "Parquet or CSV candle file", Required: true},
			&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Symbol to simulate", Required: true},
			&cli.StringFlag{Name: "interval", Aliases: []string{"i"}, Value: "1h", Usage: "Candle interval"},
			&cli.StringFlag{Name: "strategy", Value: "scorer", Usage: "Strategy: scorer, or a signal type (e.g. oscillator_below)"},
			&cli.Float64Flag{Name: "value", Usage: "Threshold or price level for signal strategies"},
			&cli.StringFlag{Name: "indicator", Value: "rsi", Usage: "Indicator for indicator-based signal strategies"},
			&cli.IntFlag{Name: "period", Value: 14, Usage: "Indicator period"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the full result JSON to this path"},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	source, err := marketdata.NewDuckDBSource(cmd.String("data"), lg)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	symbol := cmd.String("symbol")

	candles, err := source.Range(ctx, symbol, optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return err
	}

	indicators := indicator.NewDefaultRegistry()

	strategy, err := buildStrategy(cmd, cfg, indicators)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(cfg.Backtest, strategy, lg, backtest.WithProgress())
	if err != nil {
		return err
	}

	result, err := engine.Run(candles)
	if err != nil {
		return err
	}

	printSummary(result)

	if cfg.SignalDBPath != "" && len(result.Trades) > 0 {
		duck, err := store.NewDuckDBStorage(cfg.SignalDBPath, lg)
		if err != nil {
			return err
		}
		defer func() { _ = duck.Close() }()

		if err := duck.SaveTrades(ctx, result.RunID, result.Trades); err != nil {
			return err
		}

		fmt.Printf("trades persisted under run %s\n", result.RunID)
	}

	if out := cmd.String("output"); out != "" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}

		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return err
		}

		fmt.Printf("full result written to %s\n", out)
	}

	return nil
}

func buildStrategy(cmd *cli.Command, cfg config.Config, indicators *indicator.Registry) (backtest.Strategy, error) {
	name := cmd.String("strategy")
	if name == "scorer" {
		return backtest.NewWeightedScorer(indicators, cfg.Backtest), nil
	}

	def, err := buildDefinition(
		cmd.String("symbol"),
		types.Interval(cmd.String("interval")),
		types.SignalType(name),
		types.IndicatorType(cmd.String("indicator")),
		cmd.Float64("value"),
		int(cmd.Int("period")),
	)
	if err != nil {
		return nil, err
	}

	return backtest.NewSignalStrategy(&def, indicators, signal.NewDefaultPredicateRegistry())
}

// buildDefinition dispatches to the typed constructor for the signal family.
func buildDefinition(symbol string, interval types.Interval, signalType types.SignalType, ind types.IndicatorType, value float64, period int) (signal.Definition, error) {
	now := time.Now().UTC()
	args := indicator.Args{Period: period}

	switch signalType.Family() {
	case types.FamilyOscillator:
		return signal.NewOscillatorSignal(symbol, interval, ind, signalType, value, args, now)
	case types.FamilyCrossover:
		return signal.NewCrossoverSignal(symbol, interval, ind, signalType, args, now)
	case types.FamilyMACD:
		return signal.NewMACDSignal(symbol, interval, signalType, indicator.Args{}, now)
	case types.FamilyPrice:
		return signal.NewPriceSignal(symbol, interval, signalType, value, now)
	case types.FamilyPattern:
		return signal.NewPatternSignal(symbol, interval, signalType, now)
	case types.FamilyPivot:
		return signal.NewPivotSignal(symbol, interval, signalType, now)
	default:
		return signal.Definition{}, fmt.Errorf("unknown signal type %q", signalType)
	}
}

func printSummary(result *backtest.Result) {
	m := result.Metrics

	fmt.Printf("run %s (%s on %s)\n", result.RunID, result.Strategy, result.Symbol)

	if result.NoTrades {
		fmt.Println("no trades executed")

		return
	}

	fmt.Printf("trades: %d (%d wins / %d losses, %.1f%% win rate)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate)
	fmt.Printf("return: %.2f%% (%.2f -> %.2f)\n", m.TotalReturn, m.InitialCapital, m.FinalCapital)
	fmt.Printf("profit factor: %.2f, max drawdown: %.2f%%\n", m.ProfitFactor, m.MaxDrawdown*100)
	fmt.Printf("best trade: %.2f%%, worst trade: %.2f%%\n", m.BestTrade, m.WorstTrade)
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Stream candles, evaluate due signal rules, and serve the status API",
		Action: watchAction,
	}
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	st, closeStore, err := openStore(cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := buildProvider(cfg, lg)
	if err != nil {
		return err
	}

	cache := bundle.NewCache(provider, lg, bundle.DefaultVariants())
	evaluator := signal.NewEvaluator(cache, indicator.NewDefaultRegistry(), signal.NewDefaultPredicateRegistry(), lg)
	sched := scheduler.New(st, evaluator, notifier.NewLogNotifier(lg), cfg.Scheduler.Cadence, lg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	agents := startAgents(runCtx, cfg, provider, lg)
	defer func() {
		for _, agent := range agents {
			agent.Stop()
		}
	}()

	if cfg.API.Enabled {
		server := api.NewServer(cache, st, lg)
		if err := server.Start(cfg.API.Address); err != nil {
			return err
		}

		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			_ = server.Stop(shutdownCtx)
		}()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		lg.Info("shutting down")
		cancel()
	}()

	err = sched.Run(runCtx)
	if err == context.Canceled {
		return nil
	}

	return err
}

// buildProvider selects the streaming-capable provider for watch mode.
func buildProvider(cfg config.Config, lg *logger.Logger) (marketdata.StreamProvider, error) {
	switch cfg.MarketData.Provider {
	case "binance":
		return marketdata.NewBinanceProvider(lg), nil
	default:
		return nil, fmt.Errorf("provider %q cannot stream; watch mode requires binance", cfg.MarketData.Provider)
	}
}

func startAgents(ctx context.Context, cfg config.Config, provider marketdata.StreamProvider, lg *logger.Logger) []*market.Agent {
	agents := make([]*market.Agent, 0, len(cfg.Watch))

	for _, target := range cfg.Watch {
		buffer := market.NewBuffer(target.Symbol, target.Interval, cfg.BufferSize)
		agent := market.NewAgent(buffer, provider, lg)
		agent.Start(ctx)
		agents = append(agents, agent)

		lg.Info("agent started",
			zap.String("symbol", target.Symbol),
			zap.String("interval", string(target.Interval)),
		)
	}

	return agents
}

func signalCommand() *cli.Command {
	return &cli.Command{
		Name:  "signal",
		Usage: "Manage persisted signal rules",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a signal rule (idempotent)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Required: true},
					&cli.StringFlag{Name: "interval", Aliases: []string{"i"}, Value: "1h"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Signal type (e.g. oscillator_below)", Required: true},
					&cli.Float64Flag{Name: "value", Usage: "Threshold or price level"},
					&cli.StringFlag{Name: "indicator", Value: "rsi"},
					&cli.IntFlag{Name: "period", Value: 14},
				},
				Action: signalAddAction,
			},
			{
				Name:   "list",
				Usage:  "List stored signal rules",
				Action: signalListAction,
			},
			{
				Name:  "rm",
				Usage: "Delete a signal rule by ID, or all rules",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id"},
					&cli.BoolFlag{Name: "all"},
				},
				Action: signalRemoveAction,
			},
		},
	}
}

func signalAddAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	st, closeStore, err := openStore(cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	def, err := buildDefinition(
		cmd.String("symbol"),
		types.Interval(cmd.String("interval")),
		types.SignalType(cmd.String("type")),
		types.IndicatorType(cmd.String("indicator")),
		cmd.Float64("value"),
		int(cmd.Int("period")),
	)
	if err != nil {
		return err
	}

	created, err := st.Create(ctx, def)
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("created signal %s\n", def.ID)
	} else {
		fmt.Printf("signal %s already exists\n", def.ID)
	}

	return nil
}

func signalListAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	st, closeStore, err := openStore(cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	defs, err := st.List(ctx)
	if err != nil {
		return err
	}

	if len(defs) == 0 {
		fmt.Println("no signals stored")

		return nil
	}

	for _, def := range defs {
		state := "active"
		if !def.IsActive {
			state = "retired"
		}

		fmt.Printf("%s  %s %s %s value=%g triggers=%d/%d next=%s [%s]\n",
			def.ID, def.Symbol, def.Timeframe, def.SignalType, def.Value,
			def.TriggerCount, def.MaxTriggerTimes,
			def.NextInvocation.Format(time.RFC3339), state)
	}

	return nil
}

func signalRemoveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	st, closeStore, err := openStore(cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cmd.Bool("all") {
		removed, err := st.DeleteAll(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("removed %d signals\n", removed)

		return nil
	}

	id := cmd.String("id")
	if id == "" {
		return fmt.Errorf("either --id or --all is required")
	}

	if err := st.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Printf("removed signal %s\n", id)

	return nil
}
