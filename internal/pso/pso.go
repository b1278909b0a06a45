// Package pso implements a global-best particle swarm optimizer with
// Clerc-Kennedy constriction coefficients.
//
// A run is single-threaded and deterministic given its random.Source:
// particles are updated in index order and every random draw comes from the
// supplied source, so identically seeded sources reproduce a run exactly.
package pso

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/tinyfit/internal/optimization"
	"github.com/copyleftdev/tinyfit/internal/random"
)

const component = "pso"

// Constriction coefficients. Inertia is the constriction factor χ for
// φ = 4.1 and Cognitive = Social = χ·2.05.
const (
	Inertia   = 0.729844
	Cognitive = 1.49618
	Social    = 1.49618
)

// Initial particles are drawn uniformly from [-PositionRange, PositionRange]
// with velocities in [-VelocityRange, VelocityRange] on every axis.
const (
	PositionRange = 5.0
	VelocityRange = 1.0
)

// Particle is one candidate solution.
type Particle struct {
	Position     []float64
	Velocity     []float64
	BestPosition []float64
	BestValue    float64
}

// Swarm implements optimization.Optimizer.
type Swarm struct {
	// Random number source, consumed in a fixed order
	rng random.Source

	logger *zap.Logger

	particles []*Particle

	// Best solution found
	bestSolution *optimization.Solution

	// Global best after initialization and after each iteration
	history []optimization.Evaluation

	evaluations int
	rejected    int
}

// Option configures a Swarm.
type Option func(*Swarm)

// WithLogger sets the logger used for run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Swarm) {
		if logger != nil {
			s.logger = logger.Named("pso")
		}
	}
}

// NewSwarm creates a swarm that draws from rng.
func NewSwarm(rng random.Source, opts ...Option) (*Swarm, error) {
	if rng == nil {
		return nil, optimization.WrapError(optimization.ErrInvalidArgument, "random source is nil").
			WithComponent(component).WithOperation("NewSwarm")
	}
	s := &Swarm{
		rng:    rng,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run minimizes objective over a dim-dimensional space with the given swarm
// size and iteration count.
func Run(objective optimization.ObjectiveFunction, dim, particles, iterations int, rng random.Source) (*optimization.OptimizationResult, error) {
	s, err := NewSwarm(rng)
	if err != nil {
		return nil, err
	}
	return s.Optimize(optimization.OptimizerConfig{
		Objective:  objective,
		Dimensions: dim,
		Particles:  particles,
		Iterations: iterations,
	})
}

// Optimize runs the swarm to completion. Each call starts a fresh swarm but
// continues the random stream where the previous call left it.
//
// The objective receives the particle's position slice and must not modify
// or retain it.
func (s *Swarm) Optimize(config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	const op = "Optimize"

	if err := validate(config); err != nil {
		return nil, err.WithComponent(component).WithOperation(op)
	}

	s.logger.Debug("Starting swarm",
		zap.Int("dimensions", config.Dimensions),
		zap.Int("particles", config.Particles),
		zap.Int("iterations", config.Iterations),
	)

	s.reset(config)
	s.initialize(config)
	s.record(0)

	for it := 1; it <= config.Iterations; it++ {
		s.step(config.Objective)
		s.record(it)
	}

	if !isFinite(s.bestSolution.Value) {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidObjective,
			"no finite objective value in %d evaluations", s.evaluations).
			WithComponent(component).WithOperation(op)
	}

	if s.rejected > 0 {
		s.logger.Warn("Rejected non-finite objective values",
			zap.Int("rejected", s.rejected),
			zap.Int("evaluations", s.evaluations),
		)
	}
	s.logger.Debug("Swarm finished",
		zap.Float64("best_value", s.bestSolution.Value),
		zap.Float64s("best_position", s.bestSolution.Parameters),
	)

	return &optimization.OptimizationResult{
		BestSolution: s.bestSolution.Clone(),
		History:      s.history,
		Iterations:   config.Iterations,
		Evaluations:  s.evaluations,
		Rejected:     s.rejected,
	}, nil
}

// GetBestSolution returns the best solution found so far
func (s *Swarm) GetBestSolution() *optimization.Solution {
	return s.bestSolution.Clone()
}

// GetHistory returns the global best after each iteration
func (s *Swarm) GetHistory() []optimization.Evaluation {
	return s.history
}

// Particles returns the swarm's particles in update order.
func (s *Swarm) Particles() []*Particle {
	return s.particles
}

func validate(config optimization.OptimizerConfig) *optimization.Error {
	switch {
	case config.Objective == nil:
		return optimization.WrapError(optimization.ErrInvalidArgument, "objective is nil")
	case config.Dimensions < 1:
		return optimization.WrapErrorf(optimization.ErrInvalidArgument,
			"dimensions must be positive, got %d", config.Dimensions)
	case config.Particles < 1:
		return optimization.WrapErrorf(optimization.ErrInvalidArgument,
			"particle count must be positive, got %d", config.Particles)
	case config.Iterations < 0:
		return optimization.WrapErrorf(optimization.ErrInvalidArgument,
			"iteration count must be non-negative, got %d", config.Iterations)
	}
	return nil
}

func (s *Swarm) reset(config optimization.OptimizerConfig) {
	s.particles = make([]*Particle, config.Particles)
	s.bestSolution = nil
	s.history = make([]optimization.Evaluation, 0, config.Iterations+1)
	s.evaluations = 0
	s.rejected = 0
}

// initialize draws every particle's position and velocity and seeds the
// personal and global bests. Ties keep the first particle found.
func (s *Swarm) initialize(config optimization.OptimizerConfig) {
	dim := config.Dimensions
	for i := range s.particles {
		p := &Particle{
			Position: make([]float64, dim),
			Velocity: make([]float64, dim),
		}
		for d := 0; d < dim; d++ {
			p.Position[d] = s.uniform(PositionRange)
			p.Velocity[d] = s.uniform(VelocityRange)
		}
		p.BestPosition = append([]float64(nil), p.Position...)
		p.BestValue = s.evaluate(config.Objective, p.Position)
		s.particles[i] = p

		if i == 0 || p.BestValue < s.bestSolution.Value {
			s.updateBestSolution(p.BestPosition, p.BestValue)
		}
	}
}

// step moves every particle once, in index order.
func (s *Swarm) step(objective optimization.ObjectiveFunction) {
	for _, p := range s.particles {
		gbest := s.bestSolution.Parameters
		for d := range p.Position {
			r1 := s.rng.Next()
			r2 := s.rng.Next()
			p.Velocity[d] = Inertia*p.Velocity[d] +
				Cognitive*r1*(p.BestPosition[d]-p.Position[d]) +
				Social*r2*(gbest[d]-p.Position[d])
			p.Position[d] += p.Velocity[d]
		}

		val := s.evaluate(objective, p.Position)
		if val < p.BestValue {
			p.BestValue = val
			copy(p.BestPosition, p.Position)
			if val < s.bestSolution.Value {
				s.updateBestSolution(p.Position, val)
			}
		}
	}
}

// uniform scales a raw draw u ∈ [0,1) to [-r, r).
func (s *Swarm) uniform(r float64) float64 {
	return r * (s.rng.Next()*2 - 1)
}

// evaluate calls the objective and maps non-finite values to +Inf so they
// never win a comparison.
func (s *Swarm) evaluate(objective optimization.ObjectiveFunction, pos []float64) float64 {
	s.evaluations++
	v := objective(pos)
	if !isFinite(v) {
		s.rejected++
		return math.Inf(1)
	}
	return v
}

// updateBestSolution replaces the global best with a copy of params.
func (s *Swarm) updateBestSolution(params []float64, value float64) {
	if s.bestSolution == nil {
		s.bestSolution = &optimization.Solution{}
	}
	s.bestSolution.Parameters = append(s.bestSolution.Parameters[:0], params...)
	s.bestSolution.Value = value
}

func (s *Swarm) record(iteration int) {
	s.history = append(s.history, optimization.Evaluation{
		Iteration: iteration,
		Solution:  s.bestSolution.Clone(),
	})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
