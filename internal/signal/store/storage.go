// Package store persists signal definitions and simulated positions with
// document-store semantics keyed by definition ID.
package store

import (
	"context"
	"time"

	"github.com/signalforge-lab/signalforge/internal/signal"
)

// Storage is the persistence contract for signal definitions. Implementations
// must provide read-your-writes consistency within one scheduler tick so the
// read-modify-write update cycle never loses updates.
type Storage interface {
	// Create stores the definition unless one with the same ID exists.
	// Returns true when a new definition was stored; creating an existing
	// definition is a no-op, which makes construction idempotent.
	Create(ctx context.Context, def signal.Definition) (bool, error)
	// Upsert stores the definition, replacing any existing one with its ID.
	Upsert(ctx context.Context, def signal.Definition) error
	// Get returns the definition with the given ID.
	Get(ctx context.Context, id string) (signal.Definition, error)
	// Delete removes the definition with the given ID.
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every definition and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)
	// List returns all definitions.
	List(ctx context.Context) ([]signal.Definition, error)
	// DueSignals returns active definitions with nextInvocation <= now,
	// ordered by nextInvocation ascending.
	DueSignals(ctx context.Context, now time.Time) ([]signal.Definition, error)
}
