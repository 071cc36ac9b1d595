// Package scheduler drives periodic evaluation of persisted signal rules.
// Each tick pulls the definitions whose next invocation has come due,
// evaluates them in due order, and writes back their updated lifecycle state.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/notifier"
	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/internal/signal/store"
	"github.com/signalforge-lab/signalforge/internal/types"
)

// DefaultCadence is how often the scheduler polls for due definitions.
const DefaultCadence = 30 * time.Second

// Evaluator produces a verdict for one due definition.
type Evaluator interface {
	Evaluate(ctx context.Context, def *signal.Definition) (types.EvaluationResult, error)
}

// TickStats summarizes one scheduler pass. Failed counts evaluation
// failures; StoreFailed counts write-back failures, so one definition never
// contributes to both for the same cause.
type TickStats struct {
	Due         int
	Evaluated   int
	Fired       int
	Retired     int
	Failed      int
	StoreFailed int
}

// Scheduler polls the store for due definitions and evaluates them
// sequentially. A failing definition is logged and skipped; it never aborts
// the tick for the rest.
type Scheduler struct {
	store     store.Storage
	evaluator Evaluator
	notifier  notifier.Notifier
	cadence   time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// New wires a scheduler. A non-positive cadence falls back to DefaultCadence.
func New(st store.Storage, ev Evaluator, nt notifier.Notifier, cadence time.Duration, log *logger.Logger) *Scheduler {
	if cadence <= 0 {
		cadence = DefaultCadence
	}

	return &Scheduler{
		store:     st,
		evaluator: ev,
		notifier:  nt,
		cadence:   cadence,
		logger:    log,
		now:       time.Now,
	}
}

// SetClock overrides the scheduler clock. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run ticks until the context is cancelled. The first pass runs immediately
// so freshly added definitions are not delayed by a full cadence.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	for {
		stats, err := s.RunTick(ctx)
		if err != nil {
			s.logger.Error("scheduler tick failed", zap.Error(err))
		} else if stats.Due > 0 {
			s.logger.Info("scheduler tick",
				zap.Int("due", stats.Due),
				zap.Int("fired", stats.Fired),
				zap.Int("retired", stats.Retired),
				zap.Int("failed", stats.Failed),
				zap.Int("store_failed", stats.StoreFailed),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunTick evaluates every due definition once, in due order, and persists the
// updated lifecycle state. It returns an error only when the store itself
// cannot be read; per-definition failures are counted, not returned.
func (s *Scheduler) RunTick(ctx context.Context) (TickStats, error) {
	now := s.now()

	due, err := s.store.DueSignals(ctx, now)
	if err != nil {
		return TickStats{}, err
	}

	stats := TickStats{Due: len(due)}

	for i := range due {
		def := due[i]

		result, err := s.evaluator.Evaluate(ctx, &def)
		if err != nil {
			stats.Failed++
			s.logger.Error("signal evaluation failed",
				zap.String("signal_id", def.ID),
				zap.String("signal_type", string(def.SignalType)),
				zap.Error(err),
			)

			// Reschedule anyway so one broken rule does not spin every tick.
			s.advance(&def, now, false)
			s.persist(ctx, &def, &stats)

			continue
		}

		stats.Evaluated++

		if result.Signal {
			stats.Fired++
		}

		s.advance(&def, now, result.Signal)

		if !def.IsActive {
			stats.Retired++
		}

		s.persist(ctx, &def, &stats)

		if result.Signal && s.notifier != nil {
			if err := s.notifier.Notify(ctx, &def, result); err != nil {
				s.logger.Warn("notification failed",
					zap.String("signal_id", def.ID),
					zap.Error(err),
				)
			}
		}
	}

	return stats, nil
}

// advance moves a definition's lifecycle forward after one evaluation: the
// next invocation aligns to the next timeframe boundary strictly after now,
// and a fired rule retires once it reaches its allowed trigger count.
func (s *Scheduler) advance(def *signal.Definition, now time.Time, fired bool) {
	def.LastExecuted = now
	def.UpdatedOn = now
	def.NextInvocation = def.Timeframe.NextBoundary(now)

	if fired {
		def.TriggerCount++
		if def.TriggerCount >= def.MaxTriggerTimes {
			def.IsActive = false
		}
	}
}

func (s *Scheduler) persist(ctx context.Context, def *signal.Definition, stats *TickStats) {
	if err := s.store.Upsert(ctx, *def); err != nil {
		stats.StoreFailed++
		s.logger.Error("failed to persist signal state",
			zap.String("signal_id", def.ID),
			zap.Error(err),
		)
	}
}
