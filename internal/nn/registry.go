package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

// ActivationFunc is an elementwise hidden-layer activation. Row-wise
// functions (softmax and friends) are not representable here and are
// intentionally absent from the catalog.
type ActivationFunc func(x float64) float64

var activationRegistry = struct {
	mu sync.RWMutex
	m  map[string]ActivationFunc
}{
	m: make(map[string]ActivationFunc),
}

func init() {
	initializeBuiltInActivations()
}

func initializeBuiltInActivations() {
	MustRegisterActivation("identity", func(x float64) float64 { return x })
	MustRegisterActivation("relu", func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return x
	})
	MustRegisterActivation("leaky_relu", func(x float64) float64 {
		if x < 0 {
			return 0.01 * x
		}
		return x
	})
	MustRegisterActivation("elu", func(x float64) float64 {
		if x < 0 {
			return math.Exp(x) - 1
		}
		return x
	})
	MustRegisterActivation("selu", func(x float64) float64 {
		const (
			alpha = 1.6732632423543772
			scale = 1.0507009873554805
		)
		if x < 0 {
			return scale * alpha * (math.Exp(x) - 1)
		}
		return scale * x
	})
	MustRegisterActivation("gelu", func(x float64) float64 {
		return 0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x)))
	})
	MustRegisterActivation("tanh", math.Tanh)
	MustRegisterActivation("hard_tanh", func(x float64) float64 {
		if x > 1 {
			return 1
		}
		if x < -1 {
			return -1
		}
		return x
	})
	MustRegisterActivation("sigmoid", func(x float64) float64 {
		return 1.0 / (1.0 + math.Exp(-x))
	})
	MustRegisterActivation("hard_sigmoid", func(x float64) float64 {
		v := 0.2*x + 0.5
		if v > 1 {
			return 1
		}
		if v < 0 {
			return 0
		}
		return v
	})
	MustRegisterActivation("silu", func(x float64) float64 {
		return x / (1.0 + math.Exp(-x))
	})
	MustRegisterActivation("swish", func(x float64) float64 {
		return x / (1.0 + math.Exp(-x))
	})
	MustRegisterActivation("softplus", func(x float64) float64 {
		return math.Log1p(math.Exp(x))
	})
	MustRegisterActivation("mish", func(x float64) float64 {
		return x * math.Tanh(math.Log1p(math.Exp(x)))
	})
	MustRegisterActivation("softsign", func(x float64) float64 {
		return x / (1 + math.Abs(x))
	})
	MustRegisterActivation("tanh_shrink", func(x float64) float64 {
		return x - math.Tanh(x)
	})
	MustRegisterActivation("soft_shrink", func(x float64) float64 {
		const lambda = 0.5
		if x > lambda {
			return x - lambda
		}
		if x < -lambda {
			return x + lambda
		}
		return 0
	})
	MustRegisterActivation("hard_shrink", func(x float64) float64 {
		const lambda = 0.5
		if x > lambda || x < -lambda {
			return x
		}
		return 0
	})
}

func RegisterActivation(name string, fn ActivationFunc) error {
	if name == "" {
		return errors.New("activation name is required")
	}
	if fn == nil {
		return errors.New("activation function is required")
	}

	activationRegistry.mu.Lock()
	defer activationRegistry.mu.Unlock()

	if _, exists := activationRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}
	activationRegistry.m[name] = fn
	return nil
}

func MustRegisterActivation(name string, fn ActivationFunc) {
	if err := RegisterActivation(name, fn); err != nil {
		panic(err)
	}
}

func GetActivation(name string) (ActivationFunc, error) {
	activationRegistry.mu.RLock()
	fn, ok := activationRegistry.m[name]
	activationRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %v)", ErrActivationNotFound, name, ListActivations())
	}
	return fn, nil
}

func ListActivations() []string {
	activationRegistry.mu.RLock()
	defer activationRegistry.mu.RUnlock()

	names := make([]string, 0, len(activationRegistry.m))
	for name := range activationRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetActivationRegistryForTests() {
	activationRegistry.mu.Lock()
	activationRegistry.m = make(map[string]ActivationFunc)
	activationRegistry.mu.Unlock()
	initializeBuiltInActivations()
}
