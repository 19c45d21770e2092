// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/point"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of bootstrap workers per estimation.
	WorkerCount int `koanf:"worker_count"`

	// Default estimator selection for requests that leave a method unset.
	PointMethod     string  `koanf:"point_method"`
	VarMethod       string  `koanf:"var_method"`
	CIMethod        string  `koanf:"ci_method"`
	CILevel         float64 `koanf:"ci_level"`
	BootstrapMethod string  `koanf:"bootstrap_method"`
	BootstrapB      int     `koanf:"bootstrap_b"`

	// Seed fixes bootstrap streams for every request without its own seed.
	Seed *uint64 `koanf:"seed"`

	// Degenerate is the policy for events with an empty risk set: fail or exclude.
	Degenerate string `koanf:"degenerate"`

	// MaxRows and MaxReplicates bound a single request.
	MaxRows       int `koanf:"max_rows"`
	MaxReplicates int `koanf:"max_replicates"`

	// StoreCapacity caps the number of results kept for GET /mcf/{id}.
	StoreCapacity int `koanf:"store_capacity"`
}

// Defaults are the typed estimator defaults derived from a Config.
type Defaults struct {
	Methods    method.Set
	Level      float64
	BootstrapB uint
	Seed       *uint64
	Degenerate point.Policy
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	d := method.Default()
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		WorkerCount:     runtime.NumCPU(),
		PointMethod:     d.Point.String(),
		VarMethod:       d.Variance.String(),
		CIMethod:        d.CI.String(),
		CILevel:         0.95,
		BootstrapMethod: d.Resampling.String(),
		BootstrapB:      200,
		Degenerate:      point.Fail.String(),
		MaxRows:         1_000_000,
		MaxReplicates:   10_000,
		StoreCapacity:   1_000,
	}
}

// Defaults parses the estimator selection. It fails with ErrInvalidConfig.
func (c *Config) Defaults(_ context.Context) (Defaults, error) {
	var (
		d   Defaults
		err error
	)
	if d.Methods.Point, err = method.ParsePoint(c.PointMethod); err != nil {
		return Defaults{}, invalid("point_method", err)
	}
	if d.Methods.Variance, err = method.ParseVariance(c.VarMethod); err != nil {
		return Defaults{}, invalid("var_method", err)
	}
	if d.Methods.CI, err = method.ParseCI(c.CIMethod); err != nil {
		return Defaults{}, invalid("ci_method", err)
	}
	if d.Methods.Resampling, err = method.ParseResampling(c.BootstrapMethod); err != nil {
		return Defaults{}, invalid("bootstrap_method", err)
	}
	if err = d.Methods.Validate(); err != nil {
		return Defaults{}, invalid("methods", err)
	}
	if d.Degenerate, err = point.ParsePolicy(c.Degenerate); err != nil {
		return Defaults{}, invalid("degenerate", err)
	}
	d.Level = c.CILevel
	d.BootstrapB = uint(max(c.BootstrapB, 0))
	d.Seed = c.Seed
	return d, nil
}

// Validate checks ranges and parses the estimator defaults.
func (c *Config) Validate(ctx context.Context) error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case !(c.CILevel > 0 && c.CILevel < 1):
		return fmt.Errorf("%w: ci_level must be strictly between 0 and 1", ErrInvalidConfig)
	case c.BootstrapB < 1:
		return fmt.Errorf("%w: bootstrap_b must be positive", ErrInvalidConfig)
	case c.MaxRows < 1:
		return fmt.Errorf("%w: max_rows must be positive", ErrInvalidConfig)
	case c.MaxReplicates < c.BootstrapB:
		return fmt.Errorf("%w: max_replicates below bootstrap_b", ErrInvalidConfig)
	case c.StoreCapacity < 1:
		return fmt.Errorf("%w: store_capacity must be positive", ErrInvalidConfig)
	}
	_, err := c.Defaults(ctx)
	return err
}

func invalid(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
}
