// Package random provides the uniform [0,1) streams consumed by the particle
// swarm optimizer.
//
// None of the sources are safe for concurrent use. A caller running several
// optimizations in parallel must give each goroutine its own Source.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mathext/prng"
)

// Source produces a sequence of uniform values in [0,1).
type Source interface {
	// Next returns the next value of the stream.
	Next() float64
}

// SourceFunc adapts an ordinary function to Source.
type SourceFunc func() float64

// Next calls f.
func (f SourceFunc) Next() float64 { return f() }

// LCG multiplier and increment (Knuth's MMIX constants).
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1
)

// LCG is a deterministic 64-bit linear congruential stream. Two LCGs built
// from the same seed produce identical sequences.
type LCG struct {
	state uint64
}

// NewLCG returns an LCG seeded with seed.
func NewLCG(seed uint64) *LCG {
	return &LCG{state: seed}
}

// Next advances the state and returns its top 53 bits scaled into [0,1).
func (g *LCG) Next() float64 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return float64(g.state>>11) * 0x1p-53
}

// State returns the current internal state.
func (g *LCG) State() uint64 {
	return g.state
}

// Engine is a non-reproducible stream backed by a 64-bit Mersenne Twister.
type Engine struct {
	rng *rand.Rand
}

// NewEngine returns an Engine seeded from the operating system's entropy
// source, or from the clock if that is unavailable.
func NewEngine() *Engine {
	return NewEngineSeeded(entropySeed())
}

// NewEngineSeeded returns an Engine with a fixed seed.
func NewEngineSeeded(seed uint64) *Engine {
	mt := prng.NewMT19937_64()
	mt.Seed(seed)
	return &Engine{rng: rand.New(mt)}
}

// Next returns a uniform value in [0,1).
func (e *Engine) Next() float64 {
	return e.rng.Float64()
}

func entropySeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
