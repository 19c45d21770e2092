package loadtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	service "github.com/okian/mcf/internal/app"
	"github.com/okian/mcf/internal/domain/eventtable"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/pkg/logger"
)

// Cohort describes a synthetic recurrent-event study.
type Cohort struct {
	Subjects  int     // subjects per dataset
	Horizon   float64 // end of the study
	Rate      float64 // events per unit time of each subject
	LateEntry float64 // fraction of subjects entering after time 0
	Dropout   float64 // fraction of subjects leaving before Horizon
}

// Default cohort parameters.
const (
	defaultSubjects  = 50
	defaultHorizon   = 10.0
	defaultRate      = 0.4
	defaultLateEntry = 0.2
	defaultDropout   = 0.3

	// entryWindow bounds late entries to the first part of the study.
	entryWindow = 0.5
)

// DefaultCohort returns a cohort of 50 subjects followed for 10 time units.
func DefaultCohort() Cohort {
	return Cohort{
		Subjects:  defaultSubjects,
		Horizon:   defaultHorizon,
		Rate:      defaultRate,
		LateEntry: defaultLateEntry,
		Dropout:   defaultDropout,
	}
}

// Validate checks the cohort parameters.
func (c Cohort) Validate() error {
	switch {
	case c.Subjects < 1:
		return fmt.Errorf("%w: subjects must be positive", ErrInvalidCohort)
	case !(c.Horizon > 0) || math.IsInf(c.Horizon, 0):
		return fmt.Errorf("%w: horizon must be positive and finite", ErrInvalidCohort)
	case !(c.Rate >= 0) || math.IsInf(c.Rate, 0):
		return fmt.Errorf("%w: rate must be non-negative and finite", ErrInvalidCohort)
	case !(c.LateEntry >= 0 && c.LateEntry <= 1):
		return fmt.Errorf("%w: late entry fraction must be in [0, 1]", ErrInvalidCohort)
	case !(c.Dropout >= 0 && c.Dropout <= 1):
		return fmt.Errorf("%w: dropout fraction must be in [0, 1]", ErrInvalidCohort)
	}
	return nil
}

// Generate draws one dataset in counting-process form. Every subject
// contributes contiguous intervals split at its event times, the last one
// censored.
func Generate(rng *rand.Rand, c Cohort) eventtable.Input {
	var in eventtable.Input
	for i := 0; i < c.Subjects; i++ {
		entry := 0.0
		if rng.Float64() < c.LateEntry {
			entry = rng.Float64() * c.Horizon * entryWindow
		}
		exit := c.Horizon
		if rng.Float64() < c.Dropout {
			// Uniform over (entry, Horizon); 1-Float64 keeps exit above entry.
			exit = entry + (1-rng.Float64())*(c.Horizon-entry)
		}

		id := uint64(i + 1)
		start := entry
		for c.Rate > 0 {
			t := start + rng.ExpFloat64()/c.Rate
			if t >= exit || t <= start {
				break
			}
			in = appendRow(in, start, t, id, 1)
			start = t
		}
		in = appendRow(in, start, exit, id, 0)
	}
	return in
}

func appendRow(in eventtable.Input, t1, t2 float64, id uint64, event float64) eventtable.Input {
	in.Time1 = append(in.Time1, t1)
	in.Time2 = append(in.Time2, t2)
	in.ID = append(in.ID, id)
	in.Event = append(in.Event, event)
	return in
}

// Stream returns the generator of dataset i under seed.
func Stream(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)))
}

// generateRequests creates the configured number of requests. Dataset i
// depends only on (Seed, i), so runs are reproducible.
func generateRequests(ctx context.Context, config *Config, stats *Stats) ([]service.Request, error) {
	if err := config.Cohort.Validate(); err != nil {
		return nil, err
	}
	logger.OrNop().Info(ctx, "generating datasets",
		logger.Int("requests", config.Requests),
		logger.Int("subjects", config.Cohort.Subjects),
		logger.Uint64("seed", config.Seed))

	requests := make([]service.Request, config.Requests)
	for i := range requests {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during dataset generation: %w", err)
		}
		requests[i] = newRequest(config, Generate(Stream(config.Seed, i), config.Cohort))
	}

	stats.DatasetsGenerated = len(requests)
	logger.OrNop().Info(ctx, "generated datasets successfully", logger.Int("count", len(requests)))
	return requests, nil
}

func newRequest(config *Config, in eventtable.Input) service.Request {
	req := service.Request{Input: in}
	if m := config.Methods; m != nil {
		point, variance, ci := m.Point, m.Variance, m.CI
		req.Point, req.Variance, req.CI = &point, &variance, &ci
		if variance == method.Bootstrap {
			resampling := m.Resampling
			req.Resampling = &resampling
		}
	}
	if config.Replicates > 0 {
		b := config.Replicates
		req.BootstrapB = &b
	}
	return req
}
