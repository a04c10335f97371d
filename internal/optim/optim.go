package optim

import (
	"context"
	"errors"
	"fmt"
)

type Direction string

const (
	Minimize Direction = "min"
	Maximize Direction = "max"
)

// Mode selects how the optimizer schedules fitness evaluations.
type Mode string

const (
	// ModeSingle evaluates sequentially, letting each agent's update see
	// the updates already applied within the same epoch.
	ModeSingle Mode = "single"
	// ModeSwarm evaluates sequentially but applies updates as a batch.
	ModeSwarm Mode = "swarm"
	// ModeThread evaluates candidates concurrently on a bounded
	// goroutine pool.
	ModeThread Mode = "thread"
	// ModeProcess is accepted for config portability and schedules the
	// same way as ModeThread: evaluations are already isolated per call,
	// so worker processes would buy nothing here.
	ModeProcess Mode = "process"
)

var (
	ErrUnknownMode      = errors.New("unknown execution mode")
	ErrInvalidProblem   = errors.New("invalid optimization problem")
	ErrObjectiveWeights = errors.New("objective weights mismatch")
)

func NormalizeMode(mode Mode) (Mode, error) {
	switch mode {
	case "":
		return ModeSingle, nil
	case ModeSingle, ModeSwarm, ModeThread, ModeProcess:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: single, swarm, thread, process)", ErrUnknownMode, mode)
	}
}

func (m Mode) parallel() bool {
	return m == ModeThread || m == ModeProcess
}

// Problem is the immutable description of one optimization run. Objective
// returns one value per configured objective; direction decides the
// comparison convention and is applied by the optimizer, never by the
// objective itself.
type Problem struct {
	Objective             func(solution []float64) []float64
	LowerBounds           []float64
	UpperBounds           []float64
	Direction             Direction
	LogProgress           bool
	KeepPopulationHistory bool
	ObjectiveWeights      []float64
}

func (p Problem) Validate() error {
	if p.Objective == nil {
		return fmt.Errorf("%w: objective function is required", ErrInvalidProblem)
	}
	if len(p.LowerBounds) == 0 {
		return fmt.Errorf("%w: bounds are required", ErrInvalidProblem)
	}
	if len(p.LowerBounds) != len(p.UpperBounds) {
		return fmt.Errorf("%w: bound lengths differ: %d != %d", ErrInvalidProblem, len(p.LowerBounds), len(p.UpperBounds))
	}
	for i := range p.LowerBounds {
		if p.LowerBounds[i] > p.UpperBounds[i] {
			return fmt.Errorf("%w: lower bound above upper bound at dim %d", ErrInvalidProblem, i)
		}
	}
	switch p.Direction {
	case Minimize, Maximize:
	default:
		return fmt.Errorf("%w: direction must be min or max: got %q", ErrInvalidProblem, p.Direction)
	}
	return nil
}

// fitnessOf collapses an objective vector into the scalar the search
// compares on. Nil weights mean an unweighted sum.
func (p Problem) fitnessOf(objectives []float64) (float64, error) {
	if len(p.ObjectiveWeights) > 0 && len(p.ObjectiveWeights) != len(objectives) {
		return 0, fmt.Errorf("%w: %d weights for %d objectives", ErrObjectiveWeights, len(p.ObjectiveWeights), len(objectives))
	}
	total := 0.0
	for i, obj := range objectives {
		weight := 1.0
		if len(p.ObjectiveWeights) > 0 {
			weight = p.ObjectiveWeights[i]
		}
		total += weight * obj
	}
	return total, nil
}

func (p Problem) better(a, b float64) bool {
	if p.Direction == Maximize {
		return a > b
	}
	return a < b
}

// Agent is one evaluated candidate.
type Agent struct {
	Solution   []float64
	Objectives []float64
	Fitness    float64
}

func (a Agent) clone() Agent {
	return Agent{
		Solution:   append([]float64(nil), a.Solution...),
		Objectives: append([]float64(nil), a.Objectives...),
		Fitness:    a.Fitness,
	}
}

// History is the optimizer's run record: one entry per epoch, earliest
// first, regardless of execution mode.
type History struct {
	CurrentBest []Agent   // best of each epoch
	GlobalBest  []Agent   // best seen so far, per epoch
	Population  [][]Agent // only when KeepPopulationHistory is set
}

// GlobalBestObjectives extracts the per-epoch best first-objective trace.
func (h *History) GlobalBestObjectives() []float64 {
	out := make([]float64, 0, len(h.GlobalBest))
	for _, agent := range h.GlobalBest {
		if len(agent.Objectives) == 0 {
			out = append(out, agent.Fitness)
			continue
		}
		out = append(out, agent.Objectives[0])
	}
	return out
}

func (h *History) Epochs() int { return len(h.GlobalBest) }

// Termination optionally overrides an optimizer's configured stopping
// behavior. Zero fields are ignored.
type Termination struct {
	MaxEpochs      int
	MaxEvaluations int
	Patience       int
}

type SolveOptions struct {
	Mode        Mode
	Workers     int
	Termination *Termination
	Seed        int64
}

type Result struct {
	Best    Agent
	History *History
}

// Optimizer is the pluggable population-based search capability.
type Optimizer interface {
	Name() string
	Solve(ctx context.Context, problem Problem, opts SolveOptions) (Result, error)
}
