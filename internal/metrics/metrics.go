// Package metrics exports fit and swarm measurements to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/tinyfit/internal/optimization"
)

const namespace = "tinyfit"

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeSingular  = "singular"
	OutcomeMismatch  = "dimension_mismatch"
	OutcomeObjective = "invalid_objective"
	OutcomeInvalid   = "invalid_argument"
	OutcomeError     = "error"
)

// Metrics holds the collectors. It satisfies curvefit.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	fits         *prometheus.CounterVec
	fitDuration  *prometheus.HistogramVec
	swarmBest    prometheus.Histogram
	swarmRejects prometheus.Counter
	cacheHits    *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fits_total",
			Help:      "Number of fits by method and outcome.",
		}, []string{"method", "outcome"}),
		fitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Time spent computing a fit.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"method"}),
		swarmBest: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swarm_best_value",
			Help:      "Best objective value reached by each swarm run.",
			Buckets:   prometheus.ExponentialBuckets(1e-12, 10, 16),
		}),
		swarmRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swarm_rejected_total",
			Help:      "Objective evaluations rejected for being non-finite.",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Fits served from the cache.",
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		m.fits,
		m.fitDuration,
		m.swarmBest,
		m.swarmRejects,
		m.cacheHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveFit records one fit attempt.
func (m *Metrics) ObserveFit(method string, elapsed time.Duration, err error) {
	m.fits.WithLabelValues(method, Outcome(err)).Inc()
	m.fitDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveSwarm records a finished swarm run.
func (m *Metrics) ObserveSwarm(result *optimization.OptimizationResult) {
	if result == nil || result.BestSolution == nil {
		return
	}
	m.swarmBest.Observe(result.BestSolution.Value)
	m.swarmRejects.Add(float64(result.Rejected))
}

// CacheHit records a fit served from the cache.
func (m *Metrics) CacheHit(method string) {
	m.cacheHits.WithLabelValues(method).Inc()
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, optimization.ErrSingularSystem):
		return OutcomeSingular
	case errors.Is(err, optimization.ErrDimensionMismatch):
		return OutcomeMismatch
	case errors.Is(err, optimization.ErrInvalidObjective):
		return OutcomeObjective
	case errors.Is(err, optimization.ErrInvalidArgument):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
