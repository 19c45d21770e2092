// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/mcf/internal/adapters/repository"
	"github.com/okian/mcf/internal/config"
	"github.com/okian/mcf/internal/domain/estimator"
	"github.com/okian/mcf/internal/domain/eventtable"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/internal/domain/point"
	"github.com/okian/mcf/pkg/logger"
	"github.com/okian/mcf/pkg/metrics"
)

// Request is one estimation call. Nil selectors fall back to the service
// defaults.
type Request struct {
	eventtable.Input
	Point      *method.Point      `json:"point_method,omitempty"`
	Variance   *method.Variance   `json:"var_method,omitempty"`
	CI         *method.CI         `json:"ci_method,omitempty"`
	Resampling *method.Resampling `json:"var_bootstrap_method,omitempty"`
	Level      *float64           `json:"ci_level,omitempty"`
	BootstrapB *uint              `json:"var_bootstrap_B,omitempty"`
	Seed       *uint64            `json:"seed,omitempty"`
	Degenerate *point.Policy      `json:"degenerate,omitempty"`
}

// Service runs estimations and keeps their results for later retrieval.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	estimator *estimator.Estimator

	// Configuration
	workerCount   int
	storeCapacity int
	maxRows       int
	maxReplicates uint
	defaults      config.Defaults

	// State
	started     bool
	estimations atomic.Int64
	failures    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of bootstrap workers per estimation.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaults sets the estimator selection applied to unset request fields.
func WithDefaults(d config.Defaults) Option {
	return func(s *Service) {
		s.defaults = d
	}
}

// WithStore replaces the default in-memory result store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStoreCapacity bounds the default in-memory result store.
func WithStoreCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.storeCapacity = n
		}
	}
}

// WithMaxRows caps the number of input rows of one request.
func WithMaxRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

// WithMaxReplicates caps var_bootstrap_B of one request.
func WithMaxReplicates(n uint) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReplicates = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		storeCapacity: 1_000,
		maxRows:       1_000_000,
		maxReplicates: 10_000,
		defaults: config.Defaults{
			Methods:    method.Default(),
			Level:      0.95,
			BootstrapB: 200,
		},
		logger: nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.OrNop()
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithCapacity(s.storeCapacity))
	}
	s.estimator = estimator.New(
		estimator.WithWorkers(s.workerCount),
		estimator.WithLogger(s.logger.Named("estimator")),
	)

	s.started = true
	s.logger.Info(ctx, "mcf service started",
		logger.Int("workers", s.workerCount),
		logger.Int("maxRows", s.maxRows),
		logger.Int("maxReplicates", int(s.maxReplicates)),
		logger.String("pointMethod", s.defaults.Methods.Point.String()),
		logger.String("varMethod", s.defaults.Methods.Variance.String()),
	)
	return nil
}

// Stop releases the result store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing result store", logger.Error(err))
		}
		s.store = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "mcf service stopped")
}

// Resolve merges req with the service defaults.
func (s *Service) Resolve(req Request) estimator.Request {
	d := s.defaults
	out := estimator.Request{
		Input:      req.Input,
		Methods:    d.Methods,
		Level:      d.Level,
		BootstrapB: d.BootstrapB,
		Seed:       d.Seed,
		Degenerate: d.Degenerate,
	}
	if req.Point != nil {
		out.Methods.Point = *req.Point
	}
	if req.Variance != nil {
		out.Methods.Variance = *req.Variance
	}
	if req.CI != nil {
		out.Methods.CI = *req.CI
	}
	if req.Resampling != nil {
		out.Methods.Resampling = *req.Resampling
	}
	if req.Level != nil {
		out.Level = *req.Level
	}
	if req.BootstrapB != nil {
		out.BootstrapB = *req.BootstrapB
	}
	if req.Seed != nil {
		out.Seed = req.Seed
	}
	if req.Degenerate != nil {
		out.Degenerate = *req.Degenerate
	}
	return out
}

// Estimate runs one estimation, stores the result and returns it with its id.
func (s *Service) Estimate(ctx context.Context, req Request) (model.Result, error) {
	s.mu.RLock()
	started, est, store := s.started, s.estimator, s.store
	s.mu.RUnlock()
	if !started {
		return model.Result{}, ErrNotStarted
	}

	r := s.Resolve(req)
	if err := s.checkLimits(r); err != nil {
		s.fail(ctx, r, "too_large", err)
		return model.Result{}, err
	}

	start := time.Now()
	res, err := est.Estimate(ctx, r)
	elapsed := time.Since(start)
	metrics.RecordEstimationLatency(float64(elapsed.Milliseconds()))
	if err != nil {
		code := model.Code(err)
		if code == "" {
			code = "internal"
		}
		s.fail(ctx, r, code, err)
		return model.Result{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Result{}, fmt.Errorf("generate result id: %w", err)
	}
	res.ID = id.String()
	if err := store.Put(ctx, res); err != nil {
		return model.Result{}, fmt.Errorf("store result: %w", err)
	}

	s.estimations.Add(1)
	metrics.RecordEstimation(r.Methods.Point.String(), r.Methods.Variance.String(), "ok")
	metrics.RecordEstimationShape(res.Subjects, res.Len())
	s.logger.Info(ctx, "estimation finished",
		logger.String("id", res.ID),
		logger.Int("subjects", res.Subjects),
		logger.Int("times", res.Len()),
		logger.String("pointMethod", res.Methods.Point),
		logger.String("varMethod", res.Methods.Variance),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Service) checkLimits(r estimator.Request) error {
	if rows := len(r.Input.Time1); rows > s.maxRows {
		return fmt.Errorf("%w: %d rows exceed the limit of %d", ErrTooLarge, rows, s.maxRows)
	}
	if r.Methods.Variance == method.Bootstrap && r.BootstrapB > s.maxReplicates {
		return fmt.Errorf("%w: %d replicates exceed the limit of %d", ErrTooLarge, r.BootstrapB, s.maxReplicates)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, r estimator.Request, code string, err error) {
	s.failures.Add(1)
	metrics.RecordEstimation(r.Methods.Point.String(), r.Methods.Variance.String(), code)
	metrics.RecordError("service", code)
	s.logger.Warn(ctx, "estimation rejected",
		logger.String("code", code),
		logger.Int("rows", len(r.Input.Time1)),
		logger.Error(err),
	)
}

// Result returns a stored result by id.
func (s *Service) Result(ctx context.Context, id string) (model.Result, error) {
	store, err := s.currentStore()
	if err != nil {
		return model.Result{}, err
	}
	return store.Get(ctx, id)
}

// List returns summaries of the most recent results.
func (s *Service) List(ctx context.Context, limit int) ([]repository.Summary, error) {
	store, err := s.currentStore()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, limit)
}

func (s *Service) currentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"maxRows":       s.maxRows,
		"maxReplicates": s.maxReplicates,
		"estimations":   s.estimations.Load(),
		"failures":      s.failures.Load(),
		"defaults":      s.defaults.Methods.Names(),
	}

	if s.started {
		stored := s.store.Count(context.Background())
		stats["storedResults"] = stored
		metrics.UpdateStoredResults(stored)
	}

	return stats
}
