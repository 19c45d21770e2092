package loadtest

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/mcf/internal/domain/estimator"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/internal/domain/point"
	"github.com/okian/mcf/pkg/logger"
)

// verifyResults recomputes every successful exchange locally with the
// methods, level and seed the server reported and compares the curves.
func verifyResults(ctx context.Context, config *Config, exchanges []Exchange, stats *Stats) error {
	log := logger.OrNop()
	log.Info(ctx, "verifying results")

	local := estimator.New(estimator.WithWorkers(config.Workers))
	for _, ex := range exchanges {
		if ex.Err != nil {
			continue
		}
		req, err := replay(ex)
		if err != nil {
			return fmt.Errorf("result %s: %w", ex.Result.ID, err)
		}
		want, err := local.Estimate(ctx, req)
		if err != nil {
			return fmt.Errorf("result %s: local estimation failed: %w", ex.Result.ID, err)
		}
		if err := compareResults(ex.Result, want); err != nil {
			stats.ResultsMismatched++
			log.Warn(ctx, "result mismatch", logger.String("id", ex.Result.ID), logger.Error(err))
			continue
		}
		stats.ResultsVerified++
	}

	if stats.ResultsMismatched > 0 {
		return fmt.Errorf("%w: %d of %d results", ErrMismatch, stats.ResultsMismatched,
			stats.ResultsMismatched+stats.ResultsVerified)
	}
	log.Info(ctx, "result verification completed", logger.Int("verified", stats.ResultsVerified))
	return nil
}

// replay rebuilds the estimator request that produced ex.Result.
func replay(ex Exchange) (estimator.Request, error) {
	names := ex.Result.Methods
	var (
		set method.Set
		err error
	)
	if set.Point, err = method.ParsePoint(names.Point); err != nil {
		return estimator.Request{}, err
	}
	if set.Variance, err = method.ParseVariance(names.Variance); err != nil {
		return estimator.Request{}, err
	}
	if set.CI, err = method.ParseCI(names.CI); err != nil {
		return estimator.Request{}, err
	}
	if names.Resampling != "" {
		if set.Resampling, err = method.ParseResampling(names.Resampling); err != nil {
			return estimator.Request{}, err
		}
	}

	policy := point.Fail
	if len(ex.Result.Excluded) > 0 {
		policy = point.Exclude
	}
	return estimator.Request{
		Input:      ex.Body.Input,
		Methods:    set,
		Level:      ex.Result.Level,
		BootstrapB: ex.Result.BootstrapB,
		Seed:       ex.Result.Seed,
		Degenerate: policy,
	}, nil
}

// compareResults checks every per-time sequence of got against want.
func compareResults(got, want model.Result) error {
	checks := []struct {
		name      string
		got, want []float64
	}{
		{"times", got.Times, want.Times},
		{"mcf", got.MCF, want.MCF},
		{"variance", got.Variance, want.Variance},
		{"ci_lower", got.Lower, want.Lower},
		{"ci_upper", got.Upper, want.Upper},
		{"at_risk", got.AtRisk, want.AtRisk},
	}
	for _, c := range checks {
		if !sameCurve(c.got, c.want, VerifyTolerance) {
			return fmt.Errorf("%s differs", c.name)
		}
	}
	if got.Subjects != want.Subjects {
		return fmt.Errorf("subjects %d, want %d", got.Subjects, want.Subjects)
	}
	return nil
}

// sameCurve reports whether a and b agree elementwise within a relative
// tolerance.
func sameCurve(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > tol*math.Max(1, math.Abs(b[i])) {
			return false
		}
	}
	return true
}
