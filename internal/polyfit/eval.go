package polyfit

// Eval evaluates the polynomial Σ coeffs[k]·x^k with Horner's rule.
func Eval(coeffs []float64, x float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	y := coeffs[len(coeffs)-1]
	for k := len(coeffs) - 2; k >= 0; k-- {
		y = y*x + coeffs[k]
	}
	return y
}

// Residuals returns y_j - Eval(coeffs, x_j) for every sample. x and y must
// have equal lengths.
func Residuals(coeffs, x, y []float64) []float64 {
	res := make([]float64, len(x))
	for j := range x {
		res[j] = y[j] - Eval(coeffs, x[j])
	}
	return res
}

// RSS returns the residual sum of squares of coeffs over the samples.
func RSS(coeffs, x, y []float64) float64 {
	sum := 0.0
	for j := range x {
		d := Eval(coeffs, x[j]) - y[j]
		sum += d * d
	}
	return sum
}
