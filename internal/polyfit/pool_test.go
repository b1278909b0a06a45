package polyfit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixPoolSizesAndZeroing(t *testing.T) {
	p := &matrixPool{}

	m := p.get(3)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	m.Set(1, 2, 42)
	p.put(m)

	again := p.get(3)
	assert.Equal(t, 0.0, again.At(1, 2))

	other := p.get(2)
	r, c = other.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
}

func TestNilMatrixPool(t *testing.T) {
	var p *matrixPool
	m := p.get(2)
	require.NotNil(t, m)
	p.put(m)
}

func TestSolverConcurrentFits(t *testing.T) {
	solver := NewSolver(nil)
	x := []float64{0, 1, 2, 3, 4, 5}
	y := []float64{1, 2.7, 5, 13.3, 42.6, 123.5}

	want := make([][]float64, 6)
	for d := range want {
		c, err := Fit(x, y, d)
		require.NoError(t, err)
		want[d] = c
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d := i % len(want)
				c, err := solver.Fit(x, y, d)
				if err != nil {
					errs <- err
					return
				}
				if !assert.Equal(t, want[d], c) {
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
