package polyfit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPow(t *testing.T) {
	tests := []struct {
		base float64
		exp  int
		want float64
	}{
		{2, 0, 1},
		{0, 0, 1},
		{0, 3, 0},
		{2, 1, 2},
		{2, 10, 1024},
		{-3, 3, -27},
		{-3, 4, 81},
		{5, 10, 9765625},
		{0.5, 3, 0.125},
		{2, -2, 0.25},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Pow(tt.base, tt.exp), "Pow(%v, %d)", tt.base, tt.exp)
	}
}

func TestPowMatchesMathPow(t *testing.T) {
	for _, base := range []float64{-1.7, -0.3, 0.9, 1.1, 3.3} {
		for exp := 0; exp <= 12; exp++ {
			want := math.Pow(base, float64(exp))
			assert.InEpsilon(t, want, Pow(base, exp), 1e-13, "Pow(%v, %d)", base, exp)
		}
	}
}

func TestEval(t *testing.T) {
	assert.Equal(t, 0.0, Eval(nil, 3))
	assert.Equal(t, 4.0, Eval([]float64{4}, 100))
	// 1 + 2x + 3x² at x=2
	assert.Equal(t, 17.0, Eval([]float64{1, 2, 3}, 2))
	assert.InDelta(t, 123.5, Eval(sixCoeffs, 5), 1e-12)
}

func TestRSSAndResiduals(t *testing.T) {
	coeffs := []float64{0, 1}
	x := []float64{0, 1, 2}
	y := []float64{1, 1, 1}

	assert.Equal(t, []float64{1, 0, -1}, Residuals(coeffs, x, y))
	assert.Equal(t, 2.0, RSS(coeffs, x, y))
	assert.InDelta(t, 0, RSS(sixCoeffs, sixX, sixY), 1e-20)
}
