package indicator

import (
	"sync"

	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Registry manages the available indicator functions.
type Registry struct {
	indicators map[types.IndicatorType]Func
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		indicators: make(map[types.IndicatorType]Func),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with every built-in indicator registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	// Registration of built-ins cannot collide.
	_ = r.Register(types.IndicatorTypeSMA, SMA)
	_ = r.Register(types.IndicatorTypeEMA, EMA)
	_ = r.Register(types.IndicatorTypeRSI, RSI)
	_ = r.Register(types.IndicatorTypeMACD, MACD)
	_ = r.Register(types.IndicatorTypeBollinger, BollingerBands)
	_ = r.Register(types.IndicatorTypeStochastic, Stochastic)
	_ = r.Register(types.IndicatorTypeATR, ATR)

	return r
}

// Register adds an indicator function under a name.
func (r *Registry) Register(name types.IndicatorType, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %q already registered", name)
	}

	r.indicators[name] = fn

	return nil
}

// Get retrieves an indicator function by name.
func (r *Registry) Get(name types.IndicatorType) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %q not found", name)
	}

	return fn, nil
}

// List returns the names of all registered indicators.
func (r *Registry) List() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	return names
}
