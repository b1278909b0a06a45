// Package polyfit fits polynomials to samples by ordinary least squares,
// solving the normal equations with Gauss-Jordan elimination.
//
// Fit maps x onto [-1, 1] before building the system and converts the
// coefficients back afterwards, so the conditioning of the elimination and
// the singularity test do not depend on the units or offset of x.
package polyfit

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/copyleftdev/tinyfit/internal/optimization"
)

const component = "polyfit"

// SingularTolerance is the smallest pivot magnitude elimination accepts,
// relative to the largest entry its column had before elimination started.
const SingularTolerance = 1e-13

// Solver fits polynomials by the normal-equations method. The zero value is
// ready to use. Solvers from NewSolver reuse their elimination matrices and
// may be shared between goroutines.
type Solver struct {
	logger *zap.Logger
	pool   *matrixPool
}

// NewSolver creates a Solver. A nil logger disables logging.
func NewSolver(logger *zap.Logger) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{
		logger: logger.Named("polyfit"),
		pool:   &matrixPool{},
	}
}

// Fit returns the degree+1 coefficients c minimizing Σ (y_j - Σ c_k x_j^k)².
// c[k] multiplies x^k.
func Fit(x, y []float64, degree int) ([]float64, error) {
	return (&Solver{}).Fit(x, y, degree)
}

// Fit returns the least-squares coefficients for the given degree.
func (s *Solver) Fit(x, y []float64, degree int) ([]float64, error) {
	const op = "Fit"

	if err := Validate(x, y, degree); err != nil {
		return nil, err
	}

	log := s.log()
	log.Debug("Fitting polynomial",
		zap.Int("samples", len(x)),
		zap.Int("degree", degree),
	)

	var pool *matrixPool
	if s != nil {
		pool = s.pool
	}
	aug := pool.get(degree + 1)
	defer pool.put(aug)

	center, spread := span(x)
	u := make([]float64, len(x))
	for i, xi := range x {
		u[i] = (xi - center) / spread
	}

	fillNormalEquations(aug, u, y, degree)
	scaled, err := gaussJordan(aug)
	if err != nil {
		log.Debug("Normal equations are singular",
			zap.Int("degree", degree),
			zap.Error(err),
		)
		return nil, err.WithComponent(component).WithOperation(op)
	}

	coeffs := unscale(scaled, center, spread)
	log.Debug("Fitted polynomial", zap.Float64s("coefficients", coeffs))
	return coeffs, nil
}

func (s *Solver) log() *zap.Logger {
	if s == nil || s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

// Validate checks the sample set against the requested degree.
func Validate(x, y []float64, degree int) error {
	const op = "Validate"

	if degree < 0 {
		return optimization.WrapErrorf(optimization.ErrInvalidArgument,
			"degree must be non-negative, got %d", degree).
			WithComponent(component).WithOperation(op)
	}
	if len(x) != len(y) {
		return optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"x has %d samples but y has %d", len(x), len(y)).
			WithComponent(component).WithOperation(op)
	}
	if len(x) < degree+1 {
		return optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"degree %d needs at least %d samples, got %d", degree, degree+1, len(x)).
			WithComponent(component).WithOperation(op)
	}
	for i := range x {
		if !isFinite(x[i]) || !isFinite(y[i]) {
			return optimization.WrapErrorf(optimization.ErrInvalidArgument,
				"sample %d is not finite: (%v, %v)", i, x[i], y[i]).
				WithComponent(component).WithOperation(op)
		}
	}
	return nil
}

// NormalEquations builds the augmented (degree+1)x(degree+2) system
// [XᵀX | Xᵀy] from power sums of x as given.
func NormalEquations(x, y []float64, degree int) *mat.Dense {
	aug := mat.NewDense(degree+1, degree+2, nil)
	fillNormalEquations(aug, x, y, degree)
	return aug
}

// fillNormalEquations writes the system into a zeroed aug.
func fillNormalEquations(aug *mat.Dense, x, y []float64, degree int) {
	n := degree + 1

	// sums[k] = Σ x_j^k
	sums := make([]float64, 2*degree+1)
	for k := range sums {
		for _, xj := range x {
			sums[k] += Pow(xj, k)
		}
	}

	for i := 0; i < n; i++ {
		row := aug.RawRowView(i)
		copy(row[:n], sums[i:i+n])
		for j, xj := range x {
			row[n] += Pow(xj, i) * y[j]
		}
	}
}

// span returns the midpoint and half-width of x. The half-width is 1 when
// every x is equal, which leaves the higher columns zero and the system
// singular.
func span(x []float64) (center, spread float64) {
	lo, hi := floats.Min(x), floats.Max(x)
	center = lo + (hi-lo)/2
	spread = (hi - lo) / 2
	if spread == 0 || !isFinite(spread) {
		spread = 1
	}
	return center, spread
}

// unscale turns coefficients of the polynomial in u = (x-center)/spread
// into coefficients in x:
//
//	c_j = Σ_{k≥j} a_k C(k,j) (-center)^(k-j) / spread^k
func unscale(a []float64, center, spread float64) []float64 {
	c := make([]float64, len(a))
	for k, ak := range a {
		ak /= Pow(spread, k)
		for j := 0; j <= k; j++ {
			c[j] += ak * float64(combin.Binomial(k, j)) * Pow(-center, k-j)
		}
	}
	return c
}

// gaussJordan reduces aug in place to [I | c] using partial pivoting on
// magnitude and returns c. Each pivot is tested against the largest
// magnitude its column held before elimination.
func gaussJordan(aug *mat.Dense) ([]float64, *optimization.Error) {
	n, _ := aug.Dims()

	colMax := make([]float64, n)
	for col := range colMax {
		for r := 0; r < n; r++ {
			colMax[col] = math.Max(colMax[col], math.Abs(aug.At(r, col)))
		}
	}

	for col := 0; col < n; col++ {
		piv := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug.At(r, col)) > math.Abs(aug.At(piv, col)) {
				piv = r
			}
		}
		if piv != col {
			swapRows(aug, col, piv)
		}

		pivotRow := aug.RawRowView(col)
		div := pivotRow[col]
		tol := SingularTolerance * colMax[col]
		if !isFinite(div) || math.Abs(div) <= tol {
			return nil, optimization.WrapErrorf(optimization.ErrSingularSystem,
				"pivot %d is %g (tolerance %g)", col, div, tol)
		}
		floats.Scale(1/div, pivotRow)

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			row := aug.RawRowView(r)
			if f := row[col]; f != 0 {
				floats.AddScaled(row, -f, pivotRow)
			}
		}
	}

	coeffs := make([]float64, n)
	mat.Col(coeffs, n, aug)
	return coeffs, nil
}

func swapRows(m *mat.Dense, i, j int) {
	ri, rj := m.RawRowView(i), m.RawRowView(j)
	for c := range ri {
		ri[c], rj[c] = rj[c], ri[c]
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
