// Package notifier delivers fired-signal alerts. The scheduler only depends
// on the interface, so delivery channels can be swapped without touching the
// evaluation path.
package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/internal/types"
)

// Notifier receives fired-signal alerts.
type Notifier interface {
	// Notify reports a definition whose predicate returned a true verdict.
	Notify(ctx context.Context, def *signal.Definition, result types.EvaluationResult) error
}

// LogNotifier writes alerts to the structured log. It is the default sink
// when no external channel is configured.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(_ context.Context, def *signal.Definition, result types.EvaluationResult) error {
	n.logger.Info("signal fired",
		zap.String("signal_id", def.ID),
		zap.String("symbol", def.Symbol),
		zap.String("timeframe", string(def.Timeframe)),
		zap.String("signal_type", string(def.SignalType)),
		zap.String("label", result.Label),
		zap.Any("data", result.Data),
	)

	return nil
}

// Fanout delivers each alert to every wrapped notifier. Failures are
// collected per sink instead of short-circuiting delivery.
type Fanout struct {
	sinks  []Notifier
	logger *logger.Logger
	mu     sync.RWMutex
}

// NewFanout creates a notifier that forwards to all given sinks.
func NewFanout(log *logger.Logger, sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks, logger: log, mu: sync.RWMutex{}}
}

// Add registers an additional sink.
func (f *Fanout) Add(n Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sinks = append(f.sinks, n)
}

func (f *Fanout) Notify(ctx context.Context, def *signal.Definition, result types.EvaluationResult) error {
	f.mu.RLock()
	sinks := make([]Notifier, len(f.sinks))
	copy(sinks, f.sinks)
	f.mu.RUnlock()

	var firstErr error

	for _, sink := range sinks {
		if err := sink.Notify(ctx, def, result); err != nil {
			f.logger.Warn("notification delivery failed",
				zap.String("signal_id", def.ID),
				zap.Error(err),
			)

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
