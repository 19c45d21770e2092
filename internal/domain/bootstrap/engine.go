// Package bootstrap estimates MCF variance by resampling subjects with
// replacement and recomputing the point estimate on every replicate.
//
// Replicate b draws from its own PCG stream seeded with (seed, b), so the
// output depends only on the seed and never on worker count or scheduling.
package bootstrap

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/okian/mcf/internal/domain/eventtable"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/internal/domain/point"
	"github.com/okian/mcf/internal/domain/riskset"
	"github.com/okian/mcf/pkg/logger"
	"github.com/okian/mcf/pkg/metrics"
)

// blockSize is the number of consecutive replicates a worker claims at once.
// Block accumulators are merged in block order.
const blockSize = 16

// Config selects how a run resamples and what it keeps.
type Config struct {
	B      uint
	Scheme method.Resampling
	Point  method.Point
	Seed   uint64
	// KeepReplicates stores every replicate curve, needed for percentile CIs.
	KeepReplicates bool
}

// Summary is the outcome of a bootstrap run, aligned with the times passed
// to Run.
type Summary struct {
	Mean       []float64
	Variance   []float64
	Replicates [][]float64 // B rows when Config.KeepReplicates is set
	B          uint
	Seed       uint64
	Excluded   int // degenerate snapshots dropped across all replicates
}

// Engine runs bootstrap replicates on a bounded worker pool.
type Engine struct {
	workers int
	logger  logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of concurrent workers. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine with one worker per CPU by default.
func New(opts ...Option) *Engine {
	e := &Engine{workers: runtime.NumCPU(), logger: logger.OrNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resamples the subjects of table cfg.B times and evaluates every
// replicate curve at times.
func (e *Engine) Run(ctx context.Context, table *eventtable.Table, times []float64, cfg Config) (Summary, error) {
	const op = "bootstrap.run"
	if cfg.B == 0 {
		return Summary{}, model.NewKind(op, model.ErrInvalidReplicates, "at least one replicate is required")
	}
	if !cfg.Point.Valid() {
		return Summary{}, model.NewKind(op, model.ErrUnsupportedMethodCombination,
			"unknown point method").WithMethod(cfg.Point.String())
	}
	if !cfg.Scheme.Valid() {
		return Summary{}, model.NewKind(op, model.ErrUnsupportedMethodCombination,
			"unknown resampling scheme").WithMethod(cfg.Scheme.String())
	}
	if len(table.Subjects) == 0 {
		return Summary{}, model.NewKind(op, model.ErrEmptyInput, "no subjects to resample")
	}

	start := time.Now()
	B := int(cfg.B)
	blocks := (B + blockSize - 1) / blockSize
	accs := make([]*accumulator, blocks)
	excluded := make([]int, blocks)
	var rows [][]float64
	if cfg.KeepReplicates {
		rows = make([][]float64, B)
	}

	draws := newSampler(table.Subjects, cfg.Scheme)
	workers := min(e.workers, blocks)
	metrics.UpdateBootstrapWorkers(workers)
	defer metrics.UpdateBootstrapWorkers(0)

	e.logger.Debug(ctx, "bootstrap started",
		logger.Int("replicates", B),
		logger.Int("workers", workers),
		logger.String("scheme", cfg.Scheme.String()),
		logger.Uint64("seed", cfg.Seed))

	p := newPool(workers, e.logger)
	err := p.run(ctx, blocks, func(_ int, block int) error {
		acc := newAccumulator(len(times))
		resampled := make([]model.Subject, len(table.Subjects))
		lo, hi := block*blockSize, min((block+1)*blockSize, B)
		for b := lo; b < hi; b++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(b)))
			draws.draw(rng, resampled)
			curve, dropped, err := replicate(resampled, cfg.Point, times)
			if err != nil {
				return err
			}
			excluded[block] += dropped
			acc.add(curve)
			if rows != nil {
				rows[b] = curve
			}
		}
		accs[block] = acc
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	total := newAccumulator(len(times))
	dropped := 0
	for i, acc := range accs {
		total.merge(acc)
		dropped += excluded[i]
	}

	elapsed := time.Since(start)
	metrics.RecordBootstrapReplicates(B)
	metrics.RecordBootstrapLatency(float64(elapsed.Milliseconds()))
	e.logger.Info(ctx, "bootstrap finished",
		logger.Int("replicates", B),
		logger.Int("excluded", dropped),
		logger.Uint64("seed", cfg.Seed),
		logger.Duration("elapsed", elapsed))

	return Summary{
		Mean:       total.mean,
		Variance:   total.variance(),
		Replicates: rows,
		B:          cfg.B,
		Seed:       cfg.Seed,
		Excluded:   dropped,
	}, nil
}

// replicate computes the point estimate of one resampled collection and
// samples it at times. Degenerate snapshots are dropped from the replicate.
func replicate(subjects []model.Subject, m method.Point, times []float64) ([]float64, int, error) {
	table := eventtable.FromSubjects(subjects)
	est, err := point.Compute(riskset.Compute(table.Records), m, len(subjects),
		point.WithDegenerate(point.Exclude))
	if err != nil {
		return nil, 0, err
	}
	out := make([]float64, len(times))
	j, current := 0, 0.0
	for i, t := range times {
		for j < est.Len() && est.Times[j] <= t {
			current = est.Values[j]
			j++
		}
		out[i] = current
	}
	return out, len(est.Excluded), nil
}

// accumulator tracks running mean and squared deviations per time point.
type accumulator struct {
	n    float64
	mean []float64
	m2   []float64
}

func newAccumulator(size int) *accumulator {
	return &accumulator{mean: make([]float64, size), m2: make([]float64, size)}
}

func (a *accumulator) add(x []float64) {
	a.n++
	for i, v := range x {
		d := v - a.mean[i]
		a.mean[i] += d / a.n
		a.m2[i] += d * (v - a.mean[i])
	}
}

// merge folds o into a using the pairwise update of Chan et al.
func (a *accumulator) merge(o *accumulator) {
	if o == nil || o.n == 0 {
		return
	}
	if a.n == 0 {
		a.n = o.n
		copy(a.mean, o.mean)
		copy(a.m2, o.m2)
		return
	}
	n := a.n + o.n
	for i := range a.mean {
		d := o.mean[i] - a.mean[i]
		a.mean[i] += d * o.n / n
		a.m2[i] += o.m2[i] + d*d*a.n*o.n/n
	}
	a.n = n
}

// variance returns the sample variance with an n-1 divisor, zero for n < 2.
func (a *accumulator) variance() []float64 {
	out := make([]float64, len(a.m2))
	if a.n < 2 {
		return out
	}
	for i, v := range a.m2 {
		out[i] = math.Max(0, v/(a.n-1))
	}
	return out
}
