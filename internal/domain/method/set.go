package method

import "github.com/okian/mcf/internal/domain/model"

// Set bundles the selectors of one estimation call.
type Set struct {
	Point      Point      `json:"point_method" koanf:"point_method"`
	Variance   Variance   `json:"var_method" koanf:"var_method"`
	CI         CI         `json:"ci_method" koanf:"ci_method"`
	Resampling Resampling `json:"var_bootstrap_method" koanf:"bootstrap_method"`
}

// Default returns the risk-adjusted estimator with Lawless-Nadeau variance
// and a normal interval.
func Default() Set {
	return Set{
		Point:      RiskAdjusted,
		Variance:   LawlessNadeau,
		CI:         Normal,
		Resampling: Subjects,
	}
}

// compatible lists the variance estimators defined for each point estimator.
var compatible = map[Point]map[Variance]bool{
	RiskAdjusted: {
		VarianceNone:  true,
		LawlessNadeau: true,
		Poisson:       true,
		Bootstrap:     true,
	},
	SampleMean: {
		VarianceNone: true,
		CSV:          true,
		Bootstrap:    true,
	},
}

// Supports reports whether v is defined for p.
func Supports(p Point, v Variance) bool {
	return compatible[p][v]
}

// Validate checks every selector and the combination table.
func (s Set) Validate() error {
	const op = "method.validate"
	switch {
	case !s.Point.Valid():
		return model.NewKind(op, model.ErrUnsupportedMethodCombination, "unknown point method").
			WithMethod(s.Point.String())
	case !s.Variance.Valid():
		return model.NewKind(op, model.ErrUnsupportedMethodCombination, "unknown variance method").
			WithMethod(s.Variance.String())
	case !s.CI.Valid():
		return model.NewKind(op, model.ErrUnsupportedMethodCombination, "unknown ci method").
			WithMethod(s.CI.String())
	case s.Variance == Bootstrap && !s.Resampling.Valid():
		return model.NewKind(op, model.ErrUnsupportedMethodCombination, "unknown bootstrap method").
			WithMethod(s.Resampling.String())
	}
	if !Supports(s.Point, s.Variance) {
		return model.NewKind(op, model.ErrUnsupportedMethodCombination,
			"variance method not defined for point method").
			WithMethod(s.Point.String() + "/" + s.Variance.String())
	}
	if s.CI == Percentile && s.Variance != Bootstrap {
		return model.NewKind(op, model.ErrUnsupportedMethodCombination,
			"percentile interval requires bootstrap variance").
			WithMethod(s.CI.String() + "/" + s.Variance.String())
	}
	return nil
}

// Names converts the set to its display form.
func (s Set) Names() model.Methods {
	m := model.Methods{
		Point:    s.Point.String(),
		Variance: s.Variance.String(),
		CI:       s.CI.String(),
	}
	if s.Variance == Bootstrap {
		m.Resampling = s.Resampling.String()
	}
	return m
}
