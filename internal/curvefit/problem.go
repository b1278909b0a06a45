// Package curvefit fits polynomials to sample sets with the closed-form
// least-squares solver or with the particle swarm, and compares the two.
package curvefit

import (
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/tinyfit/internal/optimization"
	"github.com/copyleftdev/tinyfit/internal/polyfit"
)

// Problem is a sample set and the degree of the polynomial to fit.
type Problem struct {
	X      []float64
	Y      []float64
	Degree int
}

// Validate reports a DimensionMismatch or InvalidArgument error before any
// computation.
func (p Problem) Validate() error {
	return polyfit.Validate(p.X, p.Y, p.Degree)
}

// Dimensions is the number of coefficients.
func (p Problem) Dimensions() int {
	return p.Degree + 1
}

// RSS returns the residual sum of squares of coeffs.
func (p Problem) RSS(coeffs []float64) float64 {
	return polyfit.RSS(coeffs, p.X, p.Y)
}

// Objective returns the RSS as an objective over coefficient vectors.
func (p Problem) Objective() optimization.ObjectiveFunction {
	return p.RSS
}

// gradient stores ∂RSS/∂c_k = 2 Σ_j r_j x_j^k in grad.
func (p Problem) gradient(grad, coeffs []float64) {
	for k := range grad {
		grad[k] = 0
	}
	for j, x := range p.X {
		r := polyfit.Eval(coeffs, x) - p.Y[j]
		xk := 1.0
		for k := range grad {
			grad[k] += 2 * r * xk
			xk *= x
		}
	}
}

// hessian stores ∂²RSS/∂c_k∂c_l = 2 Σ_j x_j^(k+l) in hess. It does not
// depend on the coefficients.
func (p Problem) hessian(hess *mat.SymDense, _ []float64) {
	n := hess.SymmetricDim()
	for k := 0; k < n; k++ {
		for l := k; l < n; l++ {
			sum := 0.0
			for _, x := range p.X {
				sum += polyfit.Pow(x, k+l)
			}
			hess.SetSym(k, l, 2*sum)
		}
	}
}
