package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		MaxBodyBytes    int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Swarm struct {
		Particles  int    `env:"PSO_PARTICLES" envDefault:"60"`
		Iterations int    `env:"PSO_ITERATIONS" envDefault:"1000"`
		Seed       string `env:"PSO_SEED" envDefault:"0xBEEF1234"`
		// MaxEvaluations caps particles*(iterations+1) per request.
		MaxEvaluations int `env:"PSO_MAX_EVALUATIONS" envDefault:"10000000"`
	}
	Fit struct {
		MaxDegree int           `env:"FIT_MAX_DEGREE" envDefault:"12"`
		CacheTTL  time.Duration `env:"FIT_CACHE_TTL" envDefault:"10m"`
	}
	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: HTTP_PORT %d out of range", c.HTTP.Port)
	}
	if c.Swarm.Particles < 1 {
		return fmt.Errorf("config: PSO_PARTICLES must be positive, got %d", c.Swarm.Particles)
	}
	if c.Swarm.Iterations < 0 {
		return fmt.Errorf("config: PSO_ITERATIONS must not be negative, got %d", c.Swarm.Iterations)
	}
	if c.Fit.MaxDegree < 0 {
		return fmt.Errorf("config: FIT_MAX_DEGREE must not be negative, got %d", c.Fit.MaxDegree)
	}
	if _, err := c.SwarmSeed(); err != nil {
		return err
	}
	return nil
}

// SwarmSeed parses PSO_SEED. Decimal, 0x hex, 0o octal and 0b binary
// forms are accepted.
func (c *Config) SwarmSeed() (uint64, error) {
	seed, err := strconv.ParseUint(c.Swarm.Seed, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid PSO_SEED %q: %w", c.Swarm.Seed, err)
	}
	return seed, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
