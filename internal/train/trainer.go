package train

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"metaelm/internal/nn"
	"metaelm/internal/optim"
	"metaelm/internal/scaler"
)

// State tracks the orchestrator's one-directional lifecycle. A second
// Fit call starts over from StateUninitialized; there is no incremental
// training across calls.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateOptimizing
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateOptimizing:
		return "optimizing"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// OptimizerSpec selects the search backend either by registry name with
// hyperparameters or as a pre-built instance. Exactly one of the two
// must be set.
type OptimizerSpec struct {
	Name     string
	Params   optim.Params
	Instance optim.Optimizer
}

func (s OptimizerSpec) resolve() (optim.Optimizer, error) {
	if s.Instance != nil && s.Name != "" {
		return nil, errors.New("optimizer spec is ambiguous: set a name or an instance, not both")
	}
	if s.Instance != nil {
		return s.Instance, nil
	}
	if s.Name == "" {
		return nil, errors.New("optimizer spec requires a name or an instance")
	}
	return optim.New(s.Name, s.Params)
}

// TrainerConfig describes one metaheuristic training run.
type TrainerConfig struct {
	LayerSizes []int
	Activation string
	Task       Task
	Objective  string

	// LowerBounds/UpperBounds are length 1 (broadcast) or full problem
	// length; empty means the default unit box.
	LowerBounds []float64
	UpperBounds []float64

	Optimizer   OptimizerSpec
	Mode        optim.Mode
	Workers     int
	Termination *optim.Termination
	Seed        int64

	LogProgress           bool
	KeepPopulationHistory bool
	ObjectiveWeights      []float64
}

// Trainer searches hidden-layer parameters with a population-based
// optimizer while the output layer stays closed-form. The configured
// objective drives the search direction; the best candidate is decoded
// into the long-lived network only after the search finishes.
type Trainer struct {
	cfg   TrainerConfig
	state State

	network     *nn.Network
	sc          scaler.ObjectiveScaler
	bestFitness float64
	lossHistory []float64
}

func NewTrainer(cfg TrainerConfig) (*Trainer, error) {
	if err := validateTask(cfg.Task); err != nil {
		return nil, err
	}
	if _, err := nn.NewNetwork(cfg.LayerSizes, cfg.Activation, cfg.Seed); err != nil {
		return nil, err
	}
	if _, err := ResolveObjective(cfg.Objective); err != nil {
		return nil, err
	}
	if _, err := cfg.Optimizer.resolve(); err != nil {
		return nil, err
	}
	if _, err := optim.NormalizeMode(cfg.Mode); err != nil {
		return nil, err
	}
	// The evaluator scores one objective per candidate, so anything
	// beyond a single weight can never match at solve time.
	if len(cfg.ObjectiveWeights) > 1 {
		return nil, fmt.Errorf("objective weights: got %d for a single-objective fitness", len(cfg.ObjectiveWeights))
	}
	return &Trainer{cfg: cfg}, nil
}

// Fit runs the full search. Configuration problems surface before any
// fitness evaluation happens; optimizer failures propagate unchanged.
func (t *Trainer) Fit(ctx context.Context, X, y *mat.Dense) error {
	t.state = StateUninitialized
	t.network = nil
	t.sc = nil
	t.lossHistory = nil

	opt, err := t.cfg.Optimizer.resolve()
	if err != nil {
		return err
	}
	spec, err := ResolveObjective(t.cfg.Objective)
	if err != nil {
		return err
	}

	sc, err := buildScaler(t.cfg.Task, y)
	if err != nil {
		return err
	}
	yScaled, err := sc.Transform(y)
	if err != nil {
		return err
	}

	network, err := nn.NewNetwork(t.cfg.LayerSizes, t.cfg.Activation, t.cfg.Seed)
	if err != nil {
		return err
	}
	_, cols := X.Dims()
	if err := network.Init(cols); err != nil {
		return err
	}
	t.state = StateInitialized

	lower, upper, err := ResolveBounds(t.cfg.LowerBounds, t.cfg.UpperBounds, network.NDim())
	if err != nil {
		return err
	}

	evaluator := NewEvaluator(network, sc, spec, X, yScaled, flatten(y))
	problem := optim.Problem{
		Objective:             evaluator.Evaluate,
		LowerBounds:           lower,
		UpperBounds:           upper,
		Direction:             optim.Direction(spec.Direction),
		LogProgress:           t.cfg.LogProgress,
		KeepPopulationHistory: t.cfg.KeepPopulationHistory,
		ObjectiveWeights:      append([]float64(nil), t.cfg.ObjectiveWeights...),
	}

	t.state = StateOptimizing
	result, err := opt.Solve(ctx, problem, optim.SolveOptions{
		Mode:        t.cfg.Mode,
		Workers:     t.cfg.Workers,
		Termination: t.cfg.Termination,
		Seed:        t.cfg.Seed,
	})
	if err != nil {
		t.state = StateUninitialized
		return err
	}

	// The only decode into the long-lived network: search never touches it.
	if err := network.Decode(result.Best.Solution, X, yScaled); err != nil {
		t.state = StateUninitialized
		return err
	}

	t.network = network
	t.sc = sc
	t.bestFitness = result.Best.Fitness
	t.lossHistory = result.History.GlobalBestObjectives()
	t.state = StateFinalized
	return nil
}

func (t *Trainer) Predict(X *mat.Dense) (*mat.Dense, error) {
	raw, err := t.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	return t.sc.InverseTransform(raw)
}

func (t *Trainer) PredictRaw(X *mat.Dense) (*mat.Dense, error) {
	if t.state != StateFinalized {
		return nil, ErrNotFitted
	}
	return t.network.Predict(X)
}

func (t *Trainer) Score(X, y *mat.Dense, metricName string) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return scoreMetric(metricName, y, pred)
}

func (t *Trainer) Scores(X, y *mat.Dense, metricNames ...string) (map[string]float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(metricNames))
	for _, name := range metricNames {
		value, err := scoreMetric(name, y, pred)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

// LossHistory is the per-epoch global-best objective trace, earliest
// first, one value per epoch performed.
func (t *Trainer) LossHistory() []float64 {
	return append([]float64(nil), t.lossHistory...)
}

func (t *Trainer) BestFitness() float64 { return t.bestFitness }
func (t *Trainer) State() State         { return t.state }
func (t *Trainer) Network() *nn.Network { return t.network }
