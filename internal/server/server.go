package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/tinyfit/internal/config"
	"github.com/copyleftdev/tinyfit/internal/curvefit"
	"github.com/copyleftdev/tinyfit/internal/errors"
	"github.com/copyleftdev/tinyfit/internal/logging"
	"github.com/copyleftdev/tinyfit/internal/optimization"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC interface to the curve fitter.
// Fits run synchronously on the request goroutine.
type Server struct {
	cfg      *config.Config
	logger   Logger
	fitter   *curvefit.Fitter
	defaults curvefit.SwarmOptions
}

// NewServer creates a new server instance. A nil fitter gets a plain
// curvefit.NewFitter().
func NewServer(cfg *config.Config, logger Logger, fitter *curvefit.Fitter) *Server {
	if fitter == nil {
		fitter = curvefit.NewFitter()
	}

	defaults := curvefit.DefaultSwarmOptions()
	defaults.Particles = cfg.Swarm.Particles
	defaults.Iterations = cfg.Swarm.Iterations
	if seed, err := cfg.SwarmSeed(); err == nil {
		defaults.Seed = seed
	} else {
		logger.Warn("Falling back to the default swarm seed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		fitter:   fitter,
		defaults: defaults,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fit", s.handleFit)
		r.Post("/swarm", s.handleSwarm)
		r.Post("/compare", s.handleCompare)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// fit, swarm and compare are shared by the REST and JSON-RPC handlers.

func (s *Server) fit(p params) (interface{}, error) {
	problem, err := s.problem(p)
	if err != nil {
		return nil, err
	}
	return s.fitter.LeastSquares(problem)
}

func (s *Server) swarm(p params) (interface{}, error) {
	problem, err := s.problem(p)
	if err != nil {
		return nil, err
	}
	opts, err := s.swarmOptions(p)
	if err != nil {
		return nil, err
	}
	return s.fitter.Swarm(problem, opts)
}

func (s *Server) compare(p params) (interface{}, error) {
	problem, err := s.problem(p)
	if err != nil {
		return nil, err
	}
	opts, err := s.swarmOptions(p)
	if err != nil {
		return nil, err
	}
	return s.fitter.Compare(problem, opts)
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "fit", s.fit)
}

func (s *Server) handleSwarm(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "swarm", s.swarm)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, "compare", s.compare)
}

// serve decodes a JSON object body, runs op and writes its result or the
// classified error.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, name string, op func(params) (interface{}, error)) {
	logger := s.requestLogger(r)

	var body params
	if err := s.decode(w, r, &body); err != nil {
		errors.WriteJSON(w, logger, err)
		return
	}

	result, err := s.call(name, op, body)
	if err != nil {
		logger.Debug("Fit request failed", map[string]interface{}{
			"operation": name,
			"error":     err.Error(),
		})
		errors.WriteJSON(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logEncodeFailure(logger, name, err)
	}
}

// call runs op. Failures that are not one of the optimization sentinels are
// unexpected and get wrapped with a stack trace for the error log.
func (s *Server) call(name string, op func(params) (interface{}, error), p params) (interface{}, error) {
	result, err := op(p)
	if err != nil && errors.Classify(err) == errors.KindInternal {
		return nil, errors.Wrap(err, "unexpected failure").
			WithOperation(name).
			WithComponent("server")
	}
	return result, err
}

func logEncodeFailure(logger Logger, name string, err error) {
	e := errors.Wrap(err, "encode response").
		WithOperation(name).
		WithComponent("server")
	logger.Error("Failed to encode response", map[string]interface{}{
		"error": e.Error(),
		"stack": e.StackTrace(),
	})
}

// requestLogger prefers the logger the logging middleware attached.
func (s *Server) requestLogger(r *http.Request) Logger {
	if l, ok := logging.Lookup(r.Context()); ok {
		return l
	}
	return s.logger
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := io.Reader(r.Body)
	if s.cfg.HTTP.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return optimization.WrapError(optimization.ErrInvalidArgument, fmt.Sprintf("invalid request body: %v", err)).
			WithComponent("server")
	}
	return nil
}
