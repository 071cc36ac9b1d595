package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalforge-lab/signalforge/internal/signal"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// MemoryStorage is a mutex-guarded in-memory Storage. It backs tests and
// ephemeral watch sessions that do not need durability.
type MemoryStorage struct {
	mu   sync.RWMutex
	defs map[string]signal.Definition
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		mu:   sync.RWMutex{},
		defs: make(map[string]signal.Definition),
	}
}

// Create implements Storage.
func (m *MemoryStorage) Create(_ context.Context, def signal.Definition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.defs[def.ID]; exists {
		return false, nil
	}

	m.defs[def.ID] = def

	return true, nil
}

// Upsert implements Storage.
func (m *MemoryStorage) Upsert(_ context.Context, def signal.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.defs[def.ID] = def

	return nil
}

// Get implements Storage.
func (m *MemoryStorage) Get(_ context.Context, id string) (signal.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, ok := m.defs[id]
	if !ok {
		return signal.Definition{}, errors.Newf(errors.ErrCodeSignalNotFound, "no signal with id %s", id)
	}

	return def, nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.defs[id]; !ok {
		return errors.Newf(errors.ErrCodeSignalNotFound, "no signal with id %s", id)
	}

	delete(m.defs, id)

	return nil
}

// DeleteAll implements Storage.
func (m *MemoryStorage) DeleteAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := len(m.defs)
	m.defs = make(map[string]signal.Definition)

	return removed, nil
}

// List implements Storage.
func (m *MemoryStorage) List(_ context.Context) ([]signal.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]signal.Definition, 0, len(m.defs))
	for _, def := range m.defs {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].CreatedOn.Before(defs[j].CreatedOn) })

	return defs, nil
}

// DueSignals implements Storage.
func (m *MemoryStorage) DueSignals(_ context.Context, now time.Time) ([]signal.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []signal.Definition

	for _, def := range m.defs {
		if def.IsActive && !def.NextInvocation.After(now) {
			due = append(due, def)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].NextInvocation.Before(due[j].NextInvocation) })

	return due, nil
}
