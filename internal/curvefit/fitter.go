package curvefit

import (
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/tinyfit/internal/cache"
	"github.com/copyleftdev/tinyfit/internal/optimization"
	"github.com/copyleftdev/tinyfit/internal/polyfit"
	"github.com/copyleftdev/tinyfit/internal/pso"
	"github.com/copyleftdev/tinyfit/internal/random"
)

// Method names a fitting strategy.
type Method string

const (
	MethodLeastSquares Method = "least_squares"
	MethodSwarm        Method = "swarm"
)

// Defaults for swarm fits.
const (
	DefaultParticles  = 60
	DefaultIterations = 1000
	DefaultSeed       = 0xBEEF1234
)

// SwarmOptions configures a swarm fit.
type SwarmOptions struct {
	Particles  int
	Iterations int
	// Seed of the deterministic random stream.
	Seed uint64
	// Refine polishes the swarm's best position with Newton's method.
	Refine bool
}

// DefaultSwarmOptions returns 60 particles, 1000 iterations and seed
// 0xBEEF1234 without refinement.
func DefaultSwarmOptions() SwarmOptions {
	return SwarmOptions{
		Particles:  DefaultParticles,
		Iterations: DefaultIterations,
		Seed:       DefaultSeed,
	}
}

// Fit is the outcome of one fitting call.
type Fit struct {
	Method       Method    `json:"method"`
	Coefficients []float64 `json:"coefficients"`
	RSS          float64   `json:"rss"`
	RSquared     float64   `json:"r_squared"`
	Iterations   int       `json:"iterations,omitempty"`
	Evaluations  int       `json:"evaluations,omitempty"`
	Rejected     int       `json:"rejected,omitempty"`
	Refined      bool      `json:"refined,omitempty"`
}

func (f *Fit) clone() *Fit {
	c := *f
	c.Coefficients = append([]float64(nil), f.Coefficients...)
	return &c
}

// Comparison reports how far the swarm landed from the closed-form answer.
type Comparison struct {
	LeastSquares *Fit `json:"least_squares"`
	Swarm        *Fit `json:"swarm"`
	// MaxCoefficientDiff is the largest absolute coefficient difference
	// between the two fits.
	MaxCoefficientDiff float64 `json:"max_coefficient_diff"`
	// QRDiff is the same distance between the normal-equations solution and
	// a QR least-squares solve.
	QRDiff float64 `json:"qr_diff"`
}

// Recorder receives fit measurements.
type Recorder interface {
	ObserveFit(method string, elapsed time.Duration, err error)
	ObserveSwarm(result *optimization.OptimizationResult)
	CacheHit(method string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFit(string, time.Duration, error)       {}
func (nopRecorder) ObserveSwarm(*optimization.OptimizationResult) {}
func (nopRecorder) CacheHit(string)                               {}

// Fitter runs fits. It is safe for concurrent use: every swarm fit builds
// its own random source.
type Fitter struct {
	solver   *polyfit.Solver
	logger   *zap.Logger
	recorder Recorder
	cache    *cache.Cache[*Fit]
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fitter) {
		if logger != nil {
			f.logger = logger.Named("curvefit")
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(f *Fitter) {
		if r != nil {
			f.recorder = r
		}
	}
}

// WithCache memoizes fits in c.
func WithCache(c *cache.Cache[*Fit]) Option {
	return func(f *Fitter) {
		f.cache = c
	}
}

// NewFitter creates a Fitter.
func NewFitter(opts ...Option) *Fitter {
	f := &Fitter{
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.solver = polyfit.NewSolver(f.logger)
	return f
}

// LeastSquares solves the normal equations for p.
func (f *Fitter) LeastSquares(p Problem) (*Fit, error) {
	key := cache.Key(string(MethodLeastSquares), p.Degree, p.X, p.Y)
	if hit, ok := f.cache.Get(key); ok {
		f.recorder.CacheHit(string(MethodLeastSquares))
		return hit.clone(), nil
	}

	start := time.Now()
	coeffs, err := f.solver.Fit(p.X, p.Y, p.Degree)
	f.recorder.ObserveFit(string(MethodLeastSquares), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	fit := f.report(MethodLeastSquares, p, coeffs)
	f.cache.Set(key, fit.clone())
	return fit, nil
}

// Swarm searches for the coefficients of p with the particle swarm seeded
// by opts.Seed.
func (f *Fitter) Swarm(p Problem, opts SwarmOptions) (*Fit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	refine := uint64(0)
	if opts.Refine {
		refine = 1
	}
	key := cache.Key(string(MethodSwarm), p.Degree, p.X, p.Y,
		uint64(opts.Particles), uint64(opts.Iterations), opts.Seed, refine)
	if hit, ok := f.cache.Get(key); ok {
		f.recorder.CacheHit(string(MethodSwarm))
		return hit.clone(), nil
	}

	start := time.Now()
	fit, err := f.swarm(p, opts)
	f.recorder.ObserveFit(string(MethodSwarm), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	f.cache.Set(key, fit.clone())
	return fit, nil
}

func (f *Fitter) swarm(p Problem, opts SwarmOptions) (*Fit, error) {
	s, err := pso.NewSwarm(random.NewLCG(opts.Seed), pso.WithLogger(f.logger))
	if err != nil {
		return nil, err
	}

	res, err := s.Optimize(optimization.OptimizerConfig{
		Objective:  p.Objective(),
		Dimensions: p.Dimensions(),
		Particles:  opts.Particles,
		Iterations: opts.Iterations,
	})
	if err != nil {
		return nil, err
	}
	f.recorder.ObserveSwarm(res)

	coeffs := res.BestSolution.Parameters
	refined := false
	if opts.Refine {
		coeffs, refined = f.refine(p, coeffs, res.BestSolution.Value)
	}

	fit := f.report(MethodSwarm, p, coeffs)
	fit.Iterations = res.Iterations
	fit.Evaluations = res.Evaluations
	fit.Rejected = res.Rejected
	fit.Refined = refined
	return fit, nil
}

// refine runs Newton's method from start and keeps whichever of the two
// points has the lower RSS.
func (f *Fitter) refine(p Problem, start []float64, startRSS float64) ([]float64, bool) {
	problem := optimize.Problem{
		Func: p.RSS,
		Grad: p.gradient,
		Hess: p.hessian,
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-14,
			Iterations: 5,
		},
	}

	result, err := optimize.Minimize(problem, append([]float64(nil), start...), settings, &optimize.Newton{})
	if result == nil || math.IsNaN(result.F) || result.F >= startRSS {
		f.logger.Debug("Refinement did not improve swarm result",
			zap.Float64("swarm_rss", startRSS),
			zap.Error(err),
		)
		return start, false
	}

	f.logger.Debug("Refined swarm result",
		zap.Float64("swarm_rss", startRSS),
		zap.Float64("refined_rss", result.F),
		zap.String("status", result.Status.String()),
	)
	return append([]float64(nil), result.X...), true
}

// Compare fits p both ways and measures the coefficient distance.
func (f *Fitter) Compare(p Problem, opts SwarmOptions) (*Comparison, error) {
	ls, err := f.LeastSquares(p)
	if err != nil {
		return nil, err
	}
	sw, err := f.Swarm(p, opts)
	if err != nil {
		return nil, err
	}
	qr, err := polyfit.FitQR(p.X, p.Y, p.Degree)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{
		LeastSquares:       ls,
		Swarm:              sw,
		MaxCoefficientDiff: floats.Distance(ls.Coefficients, sw.Coefficients, math.Inf(1)),
		QRDiff:             floats.Distance(ls.Coefficients, qr, math.Inf(1)),
	}

	f.logger.Debug("Compared fits",
		zap.Float64("least_squares_rss", ls.RSS),
		zap.Float64("swarm_rss", sw.RSS),
		zap.Float64("max_coefficient_diff", cmp.MaxCoefficientDiff),
		zap.Float64("qr_diff", cmp.QRDiff),
	)
	return cmp, nil
}

func (f *Fitter) report(method Method, p Problem, coeffs []float64) *Fit {
	estimates := make([]float64, len(p.X))
	for i, x := range p.X {
		estimates[i] = polyfit.Eval(coeffs, x)
	}
	rss := p.RSS(coeffs)

	r2 := stat.RSquaredFrom(estimates, p.Y, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// y has no variance
		r2 = 0
		if rss == 0 {
			r2 = 1
		}
	}

	return &Fit{
		Method:       method,
		Coefficients: append([]float64(nil), coeffs...),
		RSS:          rss,
		RSquared:     r2,
	}
}
