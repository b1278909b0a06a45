package polyfit

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// matrixPool recycles augmented n×(n+1) matrices, one sync.Pool per order.
// It is safe for concurrent use; a nil pool allocates every time.
type matrixPool struct {
	pools sync.Map // int -> *sync.Pool
}

func (p *matrixPool) pool(n int) *sync.Pool {
	if v, ok := p.pools.Load(n); ok {
		return v.(*sync.Pool)
	}
	v, _ := p.pools.LoadOrStore(n, &sync.Pool{
		New: func() any { return mat.NewDense(n, n+1, nil) },
	})
	return v.(*sync.Pool)
}

// get returns a zeroed n×(n+1) matrix.
func (p *matrixPool) get(n int) *mat.Dense {
	if p == nil {
		return mat.NewDense(n, n+1, nil)
	}
	m := p.pool(n).Get().(*mat.Dense)
	m.Zero()
	return m
}

// put hands m back for reuse. m must not be used afterwards.
func (p *matrixPool) put(m *mat.Dense) {
	if p == nil || m == nil {
		return
	}
	n, _ := m.Dims()
	p.pool(n).Put(m)
}
