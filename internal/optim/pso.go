package optim

import (
	"context"
)

// PSO is the classic particle swarm: cognitive/social velocity updates
// with linearly annealed inertia and velocity clamped to a fraction of
// the search range.
type PSO struct {
	epochs  int
	popSize int
	c1      float64
	c2      float64
	wMin    float64
	wMax    float64
}

const psoVelocityFraction = 0.2

func NewPSO(params Params) (*PSO, error) {
	if params == nil {
		return nil, ErrMissingParams
	}
	epochs, popSize, err := params.requireEpochAndPopSize()
	if err != nil {
		return nil, err
	}
	return &PSO{
		epochs:  epochs,
		popSize: popSize,
		c1:      params.floatOr("c1", 2.05),
		c2:      params.floatOr("c2", 2.05),
		wMin:    params.floatOr("w_min", 0.4),
		wMax:    params.floatOr("w_max", 0.9),
	}, nil
}

func (p *PSO) Name() string { return "OriginalPSO" }

func (p *PSO) Solve(ctx context.Context, problem Problem, opts SolveOptions) (Result, error) {
	eng, err := newEngine(problem, opts, p.epochs)
	if err != nil {
		return Result{}, err
	}

	dim := eng.dim()
	vMax := make([]float64, dim)
	for i := range vMax {
		vMax[i] = psoVelocityFraction * (problem.UpperBounds[i] - problem.LowerBounds[i])
	}

	positions := make([][]float64, p.popSize)
	velocities := make([][]float64, p.popSize)
	for i := range positions {
		positions[i] = eng.randomSolution()
		velocities[i] = make([]float64, dim)
		for d := range velocities[i] {
			velocities[i][d] = (eng.rng.Float64()*2 - 1) * vMax[d]
		}
	}

	agents, err := eng.evaluate(ctx, positions)
	if err != nil {
		return Result{}, err
	}
	eng.seed(agents)

	personalBest := make([]Agent, p.popSize)
	for i, agent := range agents {
		personalBest[i] = agent.clone()
	}

	for epoch := 1; epoch <= eng.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		inertia := p.wMax - (p.wMax-p.wMin)*float64(epoch)/float64(eng.epochs)

		if eng.mode == ModeSingle {
			// Cross-agent influence within an epoch: each particle's
			// move sees the global best advanced by earlier particles.
			for i := range positions {
				if err := ctx.Err(); err != nil {
					return Result{}, err
				}
				p.moveParticle(eng, positions[i], velocities[i], personalBest[i].Solution, inertia, vMax)
				agent, err := eng.evaluateOne(positions[i])
				if err != nil {
					return Result{}, err
				}
				eng.evaluations++
				agents[i] = agent
				if eng.problem.better(agent.Fitness, personalBest[i].Fitness) {
					personalBest[i] = agent.clone()
				}
				eng.promote(agent)
			}
		} else {
			for i := range positions {
				p.moveParticle(eng, positions[i], velocities[i], personalBest[i].Solution, inertia, vMax)
			}
			agents, err = eng.evaluate(ctx, positions)
			if err != nil {
				return Result{}, err
			}
			for i, agent := range agents {
				if eng.problem.better(agent.Fitness, personalBest[i].Fitness) {
					personalBest[i] = agent.clone()
				}
			}
		}

		eng.observe(epoch, agents, p.Name())
		if eng.done() {
			break
		}
	}

	return eng.result(), nil
}

func (p *PSO) moveParticle(eng *engine, position, velocity, personalBest []float64, inertia float64, vMax []float64) {
	globalBest := eng.best.Solution
	for d := range position {
		r1 := eng.rng.Float64()
		r2 := eng.rng.Float64()
		velocity[d] = inertia*velocity[d] +
			p.c1*r1*(personalBest[d]-position[d]) +
			p.c2*r2*(globalBest[d]-position[d])
		if velocity[d] > vMax[d] {
			velocity[d] = vMax[d]
		} else if velocity[d] < -vMax[d] {
			velocity[d] = -vMax[d]
		}
		position[d] += velocity[d]
	}
	eng.clamp(position)
}
