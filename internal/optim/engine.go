package optim

import (
	"context"
	"log"
	"math/rand"

	"github.com/sourcegraph/conc/pool"
)

// engine holds the run state shared by the concrete optimizers: bounds,
// scheduling mode, evaluation budget, RNG and the epoch history.
type engine struct {
	problem Problem
	mode    Mode
	workers int
	rng     *rand.Rand

	epochs   int
	maxEvals int
	patience int

	evaluations int
	stale       int
	best        Agent
	hasBest     bool
	improved    bool
	history     *History
}

func newEngine(problem Problem, opts SolveOptions, epochs int) (*engine, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	mode, err := NormalizeMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	maxEvals, patience := 0, 0
	if opts.Termination != nil {
		if opts.Termination.MaxEpochs > 0 {
			epochs = opts.Termination.MaxEpochs
		}
		maxEvals = opts.Termination.MaxEvaluations
		patience = opts.Termination.Patience
	}

	return &engine{
		problem:  problem,
		mode:     mode,
		workers:  workers,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		epochs:   epochs,
		maxEvals: maxEvals,
		patience: patience,
		history:  &History{},
	}, nil
}

func (e *engine) dim() int { return len(e.problem.LowerBounds) }

func (e *engine) randomSolution() []float64 {
	lb, ub := e.problem.LowerBounds, e.problem.UpperBounds
	out := make([]float64, len(lb))
	for i := range out {
		out[i] = lb[i] + e.rng.Float64()*(ub[i]-lb[i])
	}
	return out
}

func (e *engine) clamp(solution []float64) {
	lb, ub := e.problem.LowerBounds, e.problem.UpperBounds
	for i := range solution {
		if solution[i] < lb[i] {
			solution[i] = lb[i]
		} else if solution[i] > ub[i] {
			solution[i] = ub[i]
		}
	}
}

func (e *engine) evaluateOne(solution []float64) (Agent, error) {
	objectives := e.problem.Objective(solution)
	fitness, err := e.problem.fitnessOf(objectives)
	if err != nil {
		return Agent{}, err
	}
	return Agent{Solution: solution, Objectives: objectives, Fitness: fitness}, nil
}

// evaluate scores every solution. Sequential modes walk the slice in
// order; parallel modes fan out over a bounded goroutine pool with each
// worker writing only its own index, so result order is deterministic
// even though completion order is not.
func (e *engine) evaluate(ctx context.Context, solutions [][]float64) ([]Agent, error) {
	agents := make([]Agent, len(solutions))

	if e.mode.parallel() {
		p := pool.New().WithMaxGoroutines(e.workers).WithContext(ctx)
		for i := range solutions {
			i := i
			p.Go(func(ctx context.Context) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				agent, err := e.evaluateOne(solutions[i])
				if err != nil {
					return err
				}
				agents[i] = agent
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range solutions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			agent, err := e.evaluateOne(solutions[i])
			if err != nil {
				return nil, err
			}
			agents[i] = agent
		}
	}

	e.evaluations += len(solutions)
	return agents, nil
}

func (e *engine) bestOf(agents []Agent) Agent {
	best := agents[0]
	for _, agent := range agents[1:] {
		if e.problem.better(agent.Fitness, best.Fitness) {
			best = agent
		}
	}
	return best
}

// seed primes the global best from the initial population without
// recording a history entry: the trace carries one value per epoch, and
// initialization is not an epoch.
func (e *engine) seed(agents []Agent) {
	e.best = e.bestOf(agents).clone()
	e.hasBest = true
}

// promote advances the global best from inside an epoch, for modes where
// later agents should see improvements made by earlier ones. The patience
// counter is settled once per epoch, in observe.
func (e *engine) promote(agent Agent) {
	if !e.hasBest || e.problem.better(agent.Fitness, e.best.Fitness) {
		e.best = agent.clone()
		e.hasBest = true
		e.improved = true
	}
}

// observe updates the global best and records one history entry for the
// finished epoch.
func (e *engine) observe(epoch int, agents []Agent, name string) {
	epochBest := e.bestOf(agents)
	if !e.hasBest || e.problem.better(epochBest.Fitness, e.best.Fitness) {
		e.best = epochBest.clone()
		e.hasBest = true
		e.improved = true
	}
	if e.improved {
		e.stale = 0
	} else {
		e.stale++
	}
	e.improved = false

	e.history.CurrentBest = append(e.history.CurrentBest, epochBest.clone())
	e.history.GlobalBest = append(e.history.GlobalBest, e.best.clone())
	if e.problem.KeepPopulationHistory {
		snapshot := make([]Agent, len(agents))
		for i, agent := range agents {
			snapshot[i] = agent.clone()
		}
		e.history.Population = append(e.history.Population, snapshot)
	}

	if e.problem.LogProgress {
		log.Printf("%s epoch %d/%d: current=%g global=%g", name, epoch, e.epochs, epochBest.Fitness, e.best.Fitness)
	}
}

// done reports whether a termination condition fired at an epoch boundary.
func (e *engine) done() bool {
	if e.maxEvals > 0 && e.evaluations >= e.maxEvals {
		return true
	}
	if e.patience > 0 && e.stale >= e.patience {
		return true
	}
	return false
}

func (e *engine) result() Result {
	return Result{Best: e.best.clone(), History: e.history}
}
