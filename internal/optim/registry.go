package optim

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrOptimizerExists   = errors.New("optimizer already registered")
	ErrOptimizerNotFound = errors.New("optimizer not found")
	ErrMissingParams     = errors.New("optimizer params are required")
)

// Params carries an optimizer's hyperparameters by name, mirroring the
// loose config dictionaries these algorithms are usually driven by.
// Every optimizer requires "epoch" and "pop_size".
type Params map[string]float64

func (p Params) intValue(key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return int(v), true
}

func (p Params) floatOr(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

func (p Params) requireEpochAndPopSize() (epochs, popSize int, err error) {
	epochs, ok := p.intValue("epoch")
	if !ok || epochs <= 0 {
		return 0, 0, fmt.Errorf("param %q must be a positive integer", "epoch")
	}
	popSize, ok = p.intValue("pop_size")
	if !ok || popSize <= 1 {
		return 0, 0, fmt.Errorf("param %q must be an integer > 1", "pop_size")
	}
	return epochs, popSize, nil
}

type Factory func(params Params) (Optimizer, error)

var optimizerRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	MustRegisterOptimizer("BaseGA", func(params Params) (Optimizer, error) { return NewGA(params) })
	MustRegisterOptimizer("OriginalPSO", func(params Params) (Optimizer, error) { return NewPSO(params) })
}

func RegisterOptimizer(name string, factory Factory) error {
	if name == "" {
		return errors.New("optimizer name is required")
	}
	if factory == nil {
		return errors.New("optimizer factory is required")
	}

	optimizerRegistry.mu.Lock()
	defer optimizerRegistry.mu.Unlock()

	if _, exists := optimizerRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrOptimizerExists, name)
	}
	optimizerRegistry.m[name] = factory
	return nil
}

func MustRegisterOptimizer(name string, factory Factory) {
	if err := RegisterOptimizer(name, factory); err != nil {
		panic(err)
	}
}

// New resolves a registered optimizer by name. A nil params map is a
// configuration error: hyperparameters must be stated, not implied.
func New(name string, params Params) (Optimizer, error) {
	optimizerRegistry.mu.RLock()
	factory, ok := optimizerRegistry.m[name]
	optimizerRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %v)", ErrOptimizerNotFound, name, ListOptimizers())
	}
	if params == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingParams, name)
	}
	return factory(params)
}

func ListOptimizers() []string {
	optimizerRegistry.mu.RLock()
	defer optimizerRegistry.mu.RUnlock()

	names := make([]string, 0, len(optimizerRegistry.m))
	for name := range optimizerRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
