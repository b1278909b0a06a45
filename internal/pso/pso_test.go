package pso

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/tinyfit/internal/optimization"
	"github.com/copyleftdev/tinyfit/internal/random"
)

const beef = 0xBEEF1234

func sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

var (
	sixX = []float64{0, 1, 2, 3, 4, 5}
	sixY = []float64{1, 2.7, 5, 13.3, 42.6, 123.5}
)

// sixPointRSS is the residual sum of squares of a degree-5 polynomial with
// coefficients c over the six sample points.
func sixPointRSS(c []float64) float64 {
	err := 0.0
	for i, x := range sixX {
		yhat := c[5]
		for d := 4; d >= 0; d-- {
			yhat = yhat*x + c[d]
		}
		diff := yhat - sixY[i]
		err += diff * diff
	}
	return err
}

// countingSource counts draws from an underlying source.
type countingSource struct {
	src   random.Source
	draws int
}

func (c *countingSource) Next() float64 {
	c.draws++
	return c.src.Next()
}

func TestRunSphere(t *testing.T) {
	res, err := Run(sphere, 3, 30, 200, random.NewLCG(42))
	require.NoError(t, err)
	require.NotNil(t, res.BestSolution)

	assert.Less(t, res.BestSolution.Value, 1e-12)
	for _, v := range res.BestSolution.Parameters {
		assert.InDelta(t, 0, v, 1e-6)
	}
	assert.Equal(t, sphere(res.BestSolution.Parameters), res.BestSolution.Value)
}

func TestRunShiftedMinimum(t *testing.T) {
	shifted := func(x []float64) float64 {
		return (x[0]-1.5)*(x[0]-1.5) + (x[1]-1.5)*(x[1]-1.5)
	}
	res, err := Run(shifted, 2, 20, 150, random.NewLCG(7))
	require.NoError(t, err)

	assert.InDelta(t, 1.5, res.BestSolution.Parameters[0], 1e-6)
	assert.InDelta(t, 1.5, res.BestSolution.Parameters[1], 1e-6)
}

func TestRunSixPointPolynomial(t *testing.T) {
	res, err := Run(sixPointRSS, 6, 60, 1000, random.NewLCG(beef))
	require.NoError(t, err)

	initial := res.History[0].Solution.Value
	final := res.BestSolution.Value

	// the swarm stalls in a narrow valley of this ill-conditioned problem;
	// it still cuts the residual by more than five orders of magnitude
	assert.Greater(t, initial, 1e3)
	assert.Less(t, final, 0.2)
	assert.Less(t, final, initial*1e-5)
	assert.Len(t, res.BestSolution.Parameters, 6)
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := Run(sixPointRSS, 6, 20, 100, random.NewLCG(beef))
	require.NoError(t, err)
	b, err := Run(sixPointRSS, 6, 20, 100, random.NewLCG(beef))
	require.NoError(t, err)

	assert.Equal(t, a.BestSolution.Value, b.BestSolution.Value)
	assert.Equal(t, a.BestSolution.Parameters, b.BestSolution.Parameters)
	require.Len(t, b.History, len(a.History))
	for i := range a.History {
		assert.Equal(t, a.History[i].Solution.Value, b.History[i].Solution.Value)
	}

	c, err := Run(sixPointRSS, 6, 20, 100, random.NewLCG(beef+1))
	require.NoError(t, err)
	assert.NotEqual(t, a.BestSolution.Parameters, c.BestSolution.Parameters)
}

func TestHistoryIsMonotone(t *testing.T) {
	objectives := map[string]optimization.ObjectiveFunction{
		"sphere":  sphere,
		"six rss": sixPointRSS,
		"rastrigin": func(x []float64) float64 {
			sum := 10 * float64(len(x))
			for _, v := range x {
				sum += v*v - 10*math.Cos(2*math.Pi*v)
			}
			return sum
		},
	}

	for name, obj := range objectives {
		t.Run(name, func(t *testing.T) {
			res, err := Run(obj, 6, 15, 300, random.NewLCG(1))
			require.NoError(t, err)
			require.Len(t, res.History, 301)

			for i := 1; i < len(res.History); i++ {
				assert.Equal(t, i, res.History[i].Iteration)
				require.LessOrEqual(t, res.History[i].Solution.Value, res.History[i-1].Solution.Value,
					"global best regressed at iteration %d", i)
			}
			assert.Equal(t, res.History[300].Solution.Value, res.BestSolution.Value)
		})
	}
}

func TestOneMoreIterationNeverWorse(t *testing.T) {
	for _, k := range []int{0, 1, 5, 20, 60} {
		a, err := Run(sixPointRSS, 6, 60, k, random.NewLCG(beef))
		require.NoError(t, err)
		b, err := Run(sixPointRSS, 6, 60, k+1, random.NewLCG(beef))
		require.NoError(t, err)
		assert.LessOrEqual(t, b.BestSolution.Value, a.BestSolution.Value, "k=%d", k)
	}
}

func TestGlobalBestBoundsPersonalBests(t *testing.T) {
	s, err := NewSwarm(random.NewLCG(99))
	require.NoError(t, err)

	res, err := s.Optimize(optimization.OptimizerConfig{
		Objective:  sixPointRSS,
		Dimensions: 6,
		Particles:  25,
		Iterations: 50,
	})
	require.NoError(t, err)

	for i, p := range s.Particles() {
		assert.LessOrEqual(t, res.BestSolution.Value, p.BestValue, "particle %d", i)
		assert.Equal(t, sixPointRSS(p.BestPosition), p.BestValue, "particle %d", i)
	}
}

func TestDrawCount(t *testing.T) {
	src := &countingSource{src: random.NewLCG(5)}
	const dim, particles, iterations = 4, 7, 11

	res, err := Run(sphere, dim, particles, iterations, src)
	require.NoError(t, err)

	// two draws per coordinate at initialization and per coordinate per step
	assert.Equal(t, 2*dim*particles*(iterations+1), src.draws)
	assert.Equal(t, particles*(iterations+1), res.Evaluations)
	assert.Equal(t, iterations, res.Iterations)
}

func TestInitializationScaling(t *testing.T) {
	// draws alternate 0.75 (position) and 0.25 (velocity)
	n := 0
	src := random.SourceFunc(func() float64 {
		n++
		if n%2 == 1 {
			return 0.75
		}
		return 0.25
	})

	s, err := NewSwarm(src)
	require.NoError(t, err)
	_, err = s.Optimize(optimization.OptimizerConfig{
		Objective:  sphere,
		Dimensions: 3,
		Particles:  2,
		Iterations: 0,
	})
	require.NoError(t, err)

	for _, p := range s.Particles() {
		for d := range p.Position {
			assert.Equal(t, 2.5, p.Position[d])
			assert.Equal(t, -0.5, p.Velocity[d])
		}
	}
}

func TestInitialTiesKeepFirstParticle(t *testing.T) {
	constant := func([]float64) float64 { return 1 }

	s, err := NewSwarm(random.NewLCG(11))
	require.NoError(t, err)
	res, err := s.Optimize(optimization.OptimizerConfig{
		Objective:  constant,
		Dimensions: 2,
		Particles:  5,
		Iterations: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, s.Particles()[0].BestPosition, res.BestSolution.Parameters)
	assert.Equal(t, 1.0, res.BestSolution.Value)
}

func TestZeroIterations(t *testing.T) {
	res, err := Run(sphere, 2, 10, 0, random.NewLCG(3))
	require.NoError(t, err)
	require.Len(t, res.History, 1)
	assert.Equal(t, 0, res.History[0].Iteration)
	assert.Equal(t, res.History[0].Solution.Value, res.BestSolution.Value)
}

func TestNonFiniteValuesAreRejected(t *testing.T) {
	halfNaN := func(x []float64) float64 {
		if x[0] > 0 {
			return math.NaN()
		}
		return sphere(x)
	}

	res, err := Run(halfNaN, 2, 20, 100, random.NewLCG(3))
	require.NoError(t, err)

	assert.Greater(t, res.Rejected, 0)
	assert.False(t, math.IsNaN(res.BestSolution.Value))
	assert.LessOrEqual(t, res.BestSolution.Parameters[0], 0.0)
	assert.Less(t, res.BestSolution.Value, 1e-6)
	for i := 1; i < len(res.History); i++ {
		require.LessOrEqual(t, res.History[i].Solution.Value, res.History[i-1].Solution.Value)
	}
}

func TestAlwaysNonFiniteObjective(t *testing.T) {
	tests := map[string]optimization.ObjectiveFunction{
		"nan":   func([]float64) float64 { return math.NaN() },
		"+inf":  func([]float64) float64 { return math.Inf(1) },
		"-inf":  func([]float64) float64 { return math.Inf(-1) },
		"mixed": func(x []float64) float64 { return math.Inf(1) * x[0] },
	}

	for name, obj := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := Run(obj, 2, 5, 10, random.NewLCG(1))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, optimization.ErrInvalidObjective)
		})
	}
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name       string
		objective  optimization.ObjectiveFunction
		dim        int
		particles  int
		iterations int
		rng        random.Source
	}{
		{"nil objective", nil, 2, 5, 10, random.NewLCG(1)},
		{"zero dimensions", sphere, 0, 5, 10, random.NewLCG(1)},
		{"zero particles", sphere, 2, 0, 10, random.NewLCG(1)},
		{"negative iterations", sphere, 2, 5, -1, random.NewLCG(1)},
		{"nil source", sphere, 2, 5, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.objective, tt.dim, tt.particles, tt.iterations, tt.rng)
			require.Error(t, err)
			assert.ErrorIs(t, err, optimization.ErrInvalidArgument)
		})
	}
}

func TestSwarmImplementsOptimizer(t *testing.T) {
	var opt optimization.Optimizer
	s, err := NewSwarm(random.NewEngineSeeded(1), WithLogger(zap.NewExample()))
	require.NoError(t, err)
	opt = s

	res, err := opt.Optimize(optimization.OptimizerConfig{
		Objective:  sphere,
		Dimensions: 2,
		Particles:  10,
		Iterations: 50,
	})
	require.NoError(t, err)

	best := opt.GetBestSolution()
	assert.Equal(t, res.BestSolution.Value, best.Value)
	assert.Len(t, opt.GetHistory(), 51)

	// the returned solution is a copy
	best.Parameters[0] = 1e9
	assert.NotEqual(t, 1e9, opt.GetBestSolution().Parameters[0])
}

func TestEngineSourceConverges(t *testing.T) {
	res, err := Run(sphere, 2, 20, 200, random.NewEngine())
	require.NoError(t, err)
	assert.Less(t, res.BestSolution.Value, 1e-6)
}

func BenchmarkRunSixPoint(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Run(sixPointRSS, 6, 60, 1000, random.NewLCG(beef)); err != nil {
			b.Fatal(err)
		}
	}
}
