package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/copyleftdev/tinyfit/internal/cache"
	"github.com/copyleftdev/tinyfit/internal/config"
	"github.com/copyleftdev/tinyfit/internal/curvefit"
	"github.com/copyleftdev/tinyfit/internal/errors"
	"github.com/copyleftdev/tinyfit/internal/logging"
	"github.com/copyleftdev/tinyfit/internal/metrics"
	"github.com/copyleftdev/tinyfit/internal/server"
)

var version = "dev"

func main() {
	started := time.Now()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "tinyfit",
		"version": version,
	})

	opts := []curvefit.Option{
		curvefit.WithLogger(logging.NewZapLogger(serviceLogger)),
		curvefit.WithCache(cache.New[*curvefit.Fit](cfg.Fit.CacheTTL)),
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, curvefit.WithRecorder(m))
	}
	fitter := curvefit.NewFitter(opts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(serviceLogger))
	r.Use(errors.RecoveryMiddleware(serviceLogger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	srv := server.NewServer(cfg, serviceLogger, fitter)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("Starting server", map[string]interface{}{
			"address":         httpServer.Addr,
			"metrics_enabled": cfg.Metrics.Enabled,
			"cache_ttl":       cfg.Fit.CacheTTL.String(),
		})

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
		cancel()
		os.Exit(1)
	}

	serviceLogger.Info("Server stopped", map[string]interface{}{
		"uptime": time.Since(started).Round(time.Second).String(),
	})
}
