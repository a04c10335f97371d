package optim

import (
	"context"
)

// GA is a baseline genetic algorithm: tournament selection, gene-wise
// arithmetic crossover, uniform reset mutation and single-agent elitism.
type GA struct {
	epochs  int
	popSize int
	pc      float64
	pm      float64
}

func NewGA(params Params) (*GA, error) {
	if params == nil {
		return nil, ErrMissingParams
	}
	epochs, popSize, err := params.requireEpochAndPopSize()
	if err != nil {
		return nil, err
	}
	return &GA{
		epochs:  epochs,
		popSize: popSize,
		pc:      params.floatOr("pc", 0.95),
		pm:      params.floatOr("pm", 0.025),
	}, nil
}

func (g *GA) Name() string { return "BaseGA" }

func (g *GA) Solve(ctx context.Context, problem Problem, opts SolveOptions) (Result, error) {
	eng, err := newEngine(problem, opts, g.epochs)
	if err != nil {
		return Result{}, err
	}

	solutions := make([][]float64, g.popSize)
	for i := range solutions {
		solutions[i] = eng.randomSolution()
	}
	agents, err := eng.evaluate(ctx, solutions)
	if err != nil {
		return Result{}, err
	}
	eng.seed(agents)

	for epoch := 1; epoch <= eng.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		offspring := make([][]float64, 0, g.popSize)
		if eng.hasBest {
			// Elitism: the global best survives unchanged.
			offspring = append(offspring, append([]float64(nil), eng.best.Solution...))
		}
		for len(offspring) < g.popSize {
			parentA := g.tournament(eng, agents)
			parentB := g.tournament(eng, agents)
			child := g.crossover(eng, parentA, parentB)
			g.mutate(eng, child)
			eng.clamp(child)
			offspring = append(offspring, child)
		}

		agents, err = eng.evaluate(ctx, offspring)
		if err != nil {
			return Result{}, err
		}
		eng.observe(epoch, agents, g.Name())
		if eng.done() {
			break
		}
	}

	return eng.result(), nil
}

func (g *GA) tournament(eng *engine, agents []Agent) Agent {
	a := agents[eng.rng.Intn(len(agents))]
	b := agents[eng.rng.Intn(len(agents))]
	if eng.problem.better(b.Fitness, a.Fitness) {
		return b
	}
	return a
}

func (g *GA) crossover(eng *engine, parentA, parentB Agent) []float64 {
	child := make([]float64, len(parentA.Solution))
	if eng.rng.Float64() >= g.pc {
		copy(child, parentA.Solution)
		return child
	}
	for i := range child {
		r := eng.rng.Float64()
		child[i] = r*parentA.Solution[i] + (1-r)*parentB.Solution[i]
	}
	return child
}

func (g *GA) mutate(eng *engine, child []float64) {
	lb, ub := eng.problem.LowerBounds, eng.problem.UpperBounds
	for i := range child {
		if eng.rng.Float64() < g.pm {
			child[i] = lb[i] + eng.rng.Float64()*(ub[i]-lb[i])
		}
	}
}
