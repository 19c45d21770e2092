// Package estimator runs the full MCF pipeline for one request: event table,
// risk sets, point estimate, variance and confidence band.
package estimator

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/okian/mcf/internal/domain/bootstrap"
	"github.com/okian/mcf/internal/domain/confint"
	"github.com/okian/mcf/internal/domain/eventtable"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/internal/domain/point"
	"github.com/okian/mcf/internal/domain/riskset"
	"github.com/okian/mcf/internal/domain/variance"
	"github.com/okian/mcf/pkg/logger"
	"github.com/okian/mcf/pkg/metrics"
)

// Request is one estimation call.
type Request struct {
	Input      eventtable.Input
	Methods    method.Set
	Level      float64
	BootstrapB uint
	// Seed fixes the bootstrap streams. When nil a seed is drawn and reported
	// in the result.
	Seed       *uint64
	Degenerate point.Policy
}

// Estimator executes requests. It holds no per-call state and is safe for
// concurrent use.
type Estimator struct {
	engine  *bootstrap.Engine
	logger  logger.Logger
	workers int
	clock   func() time.Time
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithWorkers bounds the bootstrap worker pool.
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		e.workers = n
	}
}

// WithLogger sets the logger used by the estimator and its bootstrap engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source stamping results.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		if now != nil {
			e.clock = now
		}
	}
}

// New creates an Estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{logger: logger.OrNop(), clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.engine = bootstrap.New(bootstrap.WithWorkers(e.workers), bootstrap.WithLogger(e.logger.Named("bootstrap")))
	return e
}

// Validate checks method selection, level and replicate count without
// touching the data.
func (r Request) Validate() error {
	const op = "estimator.validate"
	if err := r.Methods.Validate(); err != nil {
		return err
	}
	if err := confint.ValidateLevel(r.Level); err != nil {
		return err
	}
	if r.Methods.Variance == method.Bootstrap && r.BootstrapB == 0 {
		return model.NewKind(op, model.ErrInvalidReplicates,
			"bootstrap variance needs at least one replicate").WithMethod(r.Methods.Variance.String())
	}
	return nil
}

// Estimate returns the complete result bundle or an error, never a partial
// result.
func (e *Estimator) Estimate(ctx context.Context, req Request) (model.Result, error) {
	if err := req.Validate(); err != nil {
		return model.Result{}, err
	}
	table, err := eventtable.Build(req.Input)
	if err != nil {
		return model.Result{}, err
	}

	est, err := point.Compute(riskset.Compute(table.Records), req.Methods.Point, len(table.Subjects),
		point.WithDegenerate(req.Degenerate))
	if err != nil {
		return model.Result{}, err
	}
	metrics.RecordExcludedSnapshots(len(est.Excluded))

	res := model.Result{
		Times:     orEmpty(est.Times),
		MCF:       orEmpty(est.Values),
		AtRisk:    orEmpty(est.AtRisk),
		Events:    orEmpty(est.Events),
		Excluded:  est.Excluded,
		Subjects:  len(table.Subjects),
		Methods:   req.Methods.Names(),
		Level:     req.Level,
		CreatedAt: e.clock().UTC(),
	}

	var replicates [][]float64
	if req.Methods.Variance == method.Bootstrap {
		seed, err := e.seed(ctx, req.Seed)
		if err != nil {
			return model.Result{}, err
		}
		sum, err := e.engine.Run(ctx, table, est.Times, bootstrap.Config{
			B:              req.BootstrapB,
			Scheme:         req.Methods.Resampling,
			Point:          req.Methods.Point,
			Seed:           seed,
			KeepReplicates: req.Methods.CI == method.Percentile,
		})
		if err != nil {
			return model.Result{}, err
		}
		res.Variance = sum.Variance
		res.BootstrapB = sum.B
		res.Seed = &seed
		replicates = sum.Replicates
	} else {
		res.Variance, err = variance.Compute(est, table, req.Methods)
		if err != nil {
			return model.Result{}, err
		}
	}

	band, err := confint.Build(res.MCF, res.Variance, req.Methods.CI, req.Level, replicates)
	if err != nil {
		return model.Result{}, err
	}
	res.Lower, res.Upper = band.Lower, band.Upper
	return res, nil
}

// seed returns the requested seed or draws a fresh one and logs it.
func (e *Estimator) seed(ctx context.Context, requested *uint64) (uint64, error) {
	if requested != nil {
		return *requested, nil
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("draw bootstrap seed: %w", err)
	}
	s := binary.LittleEndian.Uint64(b[:])
	e.logger.Info(ctx, "drew bootstrap seed", logger.Uint64("seed", s))
	return s, nil
}

func orEmpty(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}
