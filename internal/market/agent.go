package market

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/marketdata"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Agent consumes one transport subscription for a single (symbol, interval)
// pair and feeds its own candle buffer. Each agent owns its subscription and
// tears it down with its lifecycle; buffers are never shared across agents.
type Agent struct {
	buffer   *Buffer
	provider marketdata.StreamProvider
	logger   *logger.Logger

	staleAfter time.Duration
	lastTick   time.Time
	mu         sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithStaleAfter sets the staleness threshold for the liveness watchdog.
// Defaults to three bar intervals.
func WithStaleAfter(d time.Duration) AgentOption {
	return func(a *Agent) {
		a.staleAfter = d
	}
}

// NewAgent creates an agent for one (symbol, interval) subscription.
func NewAgent(buffer *Buffer, provider marketdata.StreamProvider, log *logger.Logger, opts ...AgentOption) *Agent {
	a := &Agent{
		buffer:     buffer,
		provider:   provider,
		logger:     log,
		staleAfter: 3 * buffer.Interval().Duration(),
		lastTick:   time.Time{},
		mu:         sync.Mutex{},
		cancel:     nil,
		done:       nil,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Buffer returns the candle buffer owned by this agent.
func (a *Agent) Buffer() *Buffer {
	return a.buffer
}

// Start opens the subscription and consumes ticks until Stop is called or the
// parent context is cancelled. Transport failures reconnect with exponential
// backoff; the backoff resets after a healthy session.
func (a *Agent) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	go a.run(ctx)
}

// Stop cancels the subscription and waits for the consumer to exit.
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
	}

	if a.done != nil {
		<-a.done
	}
}

// Stale reports whether the transport has gone quiet for longer than the
// staleness threshold. A stale agent is a liveness fault, not an error: the
// buffer stays valid but stops advancing.
func (a *Agent) Stale(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastTick.IsZero() {
		return false
	}

	return now.Sub(a.lastTick) > a.staleAfter
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry until cancelled

	for {
		if ctx.Err() != nil {
			return
		}

		sessionStart := time.Now()
		a.consume(ctx)

		if ctx.Err() != nil {
			return
		}

		if time.Since(sessionStart) > time.Minute {
			policy.Reset()
		}

		wait := policy.NextBackOff()
		a.logger.Warn("stream session ended, reconnecting",
			zap.String("symbol", a.buffer.Symbol()),
			zap.String("interval", string(a.buffer.Interval())),
			zap.Duration("backoff", wait),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// consume drains one stream session until it ends or the context is cancelled.
func (a *Agent) consume(ctx context.Context) {
	for tick, err := range a.provider.Stream(ctx, a.buffer.Symbol(), a.buffer.Interval()) {
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeStreamClosed) {
				return
			}

			a.logger.Warn("stream error",
				zap.String("symbol", a.buffer.Symbol()),
				zap.Error(err),
			)

			continue
		}

		if err := a.buffer.Ingest(tick); err != nil {
			a.logger.Warn("rejected tick",
				zap.String("symbol", a.buffer.Symbol()),
				zap.Error(err),
			)

			continue
		}

		a.mu.Lock()
		a.lastTick = time.Now()
		a.mu.Unlock()
	}
}
