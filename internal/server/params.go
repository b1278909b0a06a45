package server

import (
	"math"
	"strconv"

	"github.com/spf13/cast"

	"github.com/copyleftdev/tinyfit/internal/curvefit"
	"github.com/copyleftdev/tinyfit/internal/optimization"
)

// maxExactSeed is the largest integer a JSON number carries exactly.
// Larger seeds must be sent as strings.
const maxExactSeed = 1 << 53

// params holds request parameters as decoded from a JSON object. Values
// may be numbers, numeric strings or booleans; cast coerces them.
type params map[string]interface{}

func invalidParam(format string, args ...interface{}) error {
	return optimization.WrapErrorf(optimization.ErrInvalidArgument, format, args...).
		WithComponent("server").
		WithOperation("params")
}

// problem reads x, y and degree.
func (s *Server) problem(p params) (curvefit.Problem, error) {
	x, err := p.floats("x")
	if err != nil {
		return curvefit.Problem{}, err
	}
	y, err := p.floats("y")
	if err != nil {
		return curvefit.Problem{}, err
	}
	raw, ok := p["degree"]
	if !ok {
		return curvefit.Problem{}, invalidParam("degree is required")
	}
	degree, err := toInt("degree", raw)
	if err != nil {
		return curvefit.Problem{}, err
	}
	if degree > s.cfg.Fit.MaxDegree {
		return curvefit.Problem{}, invalidParam("degree %d exceeds the maximum of %d", degree, s.cfg.Fit.MaxDegree)
	}
	return curvefit.Problem{X: x, Y: y, Degree: degree}, nil
}

// swarmOptions reads particles, iterations, seed and refine, falling back
// to the configured defaults.
func (s *Server) swarmOptions(p params) (curvefit.SwarmOptions, error) {
	opts := s.defaults

	if raw, ok := p["particles"]; ok {
		n, err := toInt("particles", raw)
		if err != nil {
			return opts, err
		}
		opts.Particles = n
	}
	if raw, ok := p["iterations"]; ok {
		n, err := toInt("iterations", raw)
		if err != nil {
			return opts, err
		}
		opts.Iterations = n
	}
	if raw, ok := p["seed"]; ok {
		seed, err := toSeed(raw)
		if err != nil {
			return opts, err
		}
		opts.Seed = seed
	}
	if raw, ok := p["refine"]; ok {
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return opts, invalidParam("refine: %v", err)
		}
		opts.Refine = b
	}

	if opts.Particles < 1 {
		return opts, invalidParam("particles must be positive, got %d", opts.Particles)
	}
	if opts.Iterations < 0 {
		return opts, invalidParam("iterations must not be negative, got %d", opts.Iterations)
	}
	if limit := s.cfg.Swarm.MaxEvaluations; limit > 0 && opts.Particles*(opts.Iterations+1) > limit {
		return opts, invalidParam("particles*(iterations+1) exceeds the limit of %d evaluations", limit)
	}
	return opts, nil
}

func (p params) floats(name string) ([]float64, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return nil, invalidParam("%s is required", name)
	}
	items, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, invalidParam("%s must be an array of numbers", name)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		v, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, invalidParam("%s[%d]: %v", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func toInt(name string, raw interface{}) (int, error) {
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, invalidParam("%s: %v", name, err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, invalidParam("%s must be an integer, got %v", name, raw)
	}
	return int(f), nil
}

// toSeed accepts a non-negative integral number or a string in any base
// strconv understands ("0xBEEF1234").
func toSeed(raw interface{}) (uint64, error) {
	if s, ok := raw.(string); ok {
		seed, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0, invalidParam("seed: %v", err)
		}
		return seed, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, invalidParam("seed: %v", err)
	}
	if f < 0 || f != math.Trunc(f) || f > maxExactSeed {
		return 0, invalidParam("seed must be an integer in [0, 2^53], got %v; send larger seeds as strings", raw)
	}
	return uint64(f), nil
}
