// Package point computes the MCF step function from risk set snapshots.
package point

import (
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
)

// Policy decides what happens to a snapshot with events but nobody at risk.
type Policy uint8

// Degenerate snapshot policies.
const (
	// Fail aborts the estimation with ErrDegenerateRiskSet.
	Fail Policy = iota
	// Exclude drops the snapshot and reports its time in Estimate.Excluded.
	Exclude
)

func (p Policy) String() string {
	if p == Exclude {
		return "exclude"
	}
	return "fail"
}

// ParsePolicy maps "fail" and "exclude"; the empty string is Fail.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail":
		return Fail, nil
	case "exclude":
		return Exclude, nil
	}
	return Fail, model.NewKind("point.policy", model.ErrUnsupportedMethodCombination,
		"unknown degenerate policy").WithMethod(s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Estimate is the point estimate sampled at its jump times.
type Estimate struct {
	Times      []float64
	Values     []float64 // cumulative estimate after each jump
	AtRisk     []float64
	Events     []float64
	Increments []float64
	Excluded   []float64 // times of dropped degenerate snapshots
}

// Len returns the number of jump times.
func (e Estimate) Len() int { return len(e.Times) }

type config struct {
	policy Policy
}

// Option applies a configuration option to Compute.
type Option func(*config)

// WithDegenerate sets the policy for degenerate snapshots.
func WithDegenerate(p Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// Compute accumulates the increments of m over snaps. subjects is the number
// of processes, the denominator of SampleMean.
func Compute(snaps []model.Snapshot, m method.Point, subjects int, opts ...Option) (Estimate, error) {
	const op = "point.compute"
	cfg := config{policy: Fail}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !m.Valid() {
		return Estimate{}, model.NewKind(op, model.ErrUnsupportedMethodCombination,
			"unknown point method").WithMethod(m.String())
	}

	est := Estimate{}
	var total float64
	for _, s := range snaps {
		if s.Events <= 0 {
			continue
		}
		var denom float64
		switch m {
		case method.RiskAdjusted:
			denom = s.AtRisk
		case method.SampleMean:
			denom = float64(subjects)
		}
		if denom <= 0 {
			if cfg.policy == Fail {
				return Estimate{}, model.NewKind(op, model.ErrDegenerateRiskSet,
					"events observed with nobody at risk").WithTime(s.Time).WithMethod(m.String())
			}
			est.Excluded = append(est.Excluded, s.Time)
			continue
		}
		inc := s.Events / denom
		total += inc
		est.Times = append(est.Times, s.Time)
		est.Values = append(est.Values, total)
		est.AtRisk = append(est.AtRisk, s.AtRisk)
		est.Events = append(est.Events, s.Events)
		est.Increments = append(est.Increments, inc)
	}
	return est, nil
}

// At evaluates the estimate at t by right-continuous lookup.
func (e Estimate) At(t float64) float64 {
	return model.StepAt(e.Times, e.Values, t)
}
