package polyfit

import (
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/tinyfit/internal/optimization"
)

// FitQR solves the same least-squares problem as Fit through a QR
// factorization of the Vandermonde matrix. It avoids squaring the condition
// number and serves as an independent check on Fit.
func FitQR(x, y []float64, degree int) ([]float64, error) {
	const op = "FitQR"

	if err := Validate(x, y, degree); err != nil {
		return nil, err
	}

	m, n := len(x), degree+1
	v := mat.NewDense(m, n, nil)
	for i, xi := range x {
		row := v.RawRowView(i)
		for k := range row {
			row[k] = Pow(xi, k)
		}
	}

	var c mat.VecDense
	if err := c.SolveVec(v, mat.NewVecDense(m, append([]float64(nil), y...))); err != nil {
		return nil, optimization.WrapError(optimization.ErrSingularSystem, err.Error()).
			WithComponent(component).WithOperation(op)
	}
	return mat.Col(nil, 0, &c), nil
}
