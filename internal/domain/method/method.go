// Package method defines the closed selector enumerations of the estimator
// and the table of compatible combinations.
//
// Each selector marshals to a kebab-case name and also accepts the numeric
// code used by legacy bindings, so both "lawless-nadeau" and "1" decode to
// LawlessNadeau.
package method

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/mcf/internal/domain/model"
)

// Point selects the point estimator.
type Point uint8

// Point estimators.
const (
	// RiskAdjusted accumulates events/at-risk (Nelson-Aalen).
	RiskAdjusted Point = iota + 1
	// SampleMean accumulates events/subjects without adjusting the risk set.
	SampleMean
)

// Variance selects the variance estimator.
type Variance uint8

// Variance estimators.
const (
	VarianceNone Variance = iota + 1
	LawlessNadeau
	Poisson
	Bootstrap
	CSV
)

// CI selects the confidence interval construction.
type CI uint8

// Confidence interval methods.
const (
	Normal CI = iota + 1
	LogNormal
	Percentile
)

// Resampling selects the bootstrap resampling scheme.
type Resampling uint8

// Resampling schemes.
const (
	// Subjects resamples whole subjects with replacement.
	Subjects Resampling = iota + 1
	// Stratified resamples within the strata of subjects with and without events.
	Stratified
)

type entry struct {
	name string
	code uint
}

var (
	pointNames = map[Point]entry{
		RiskAdjusted: {"risk-adjusted", 1},
		SampleMean:   {"sample-mean", 0},
	}
	varianceNames = map[Variance]entry{
		VarianceNone:  {"none", 0},
		LawlessNadeau: {"lawless-nadeau", 1},
		Poisson:       {"poisson", 2},
		Bootstrap:     {"bootstrap", 3},
		CSV:           {"csv", 4},
	}
	ciNames = map[CI]entry{
		Normal:     {"normal", 1},
		LogNormal:  {"log-normal", 2},
		Percentile: {"percentile", 3},
	}
	resamplingNames = map[Resampling]entry{
		Subjects:   {"subjects", 1},
		Stratified: {"stratified", 2},
	}
)

func name[T comparable](names map[T]entry, v T) string {
	if e, ok := names[v]; ok {
		return e.name
	}
	return fmt.Sprintf("unknown(%d)", v)
}

func parse[T comparable](names map[T]entry, kind, s string) (T, error) {
	var zero T
	s = strings.ToLower(strings.TrimSpace(s))
	code, codeErr := strconv.ParseUint(s, 10, 32)
	for v, e := range names {
		if e.name == s || (codeErr == nil && uint(code) == e.code) {
			return v, nil
		}
	}
	return zero, model.NewKind("method.parse", model.ErrUnsupportedMethodCombination,
		"unknown "+kind).WithMethod(s)
}

func fromCode[T comparable](names map[T]entry, kind string, code uint) (T, error) {
	var zero T
	for v, e := range names {
		if e.code == code {
			return v, nil
		}
	}
	return zero, model.NewKind("method.code", model.ErrUnsupportedMethodCombination,
		"unknown "+kind).WithMethod(strconv.FormatUint(uint64(code), 10))
}

func (p Point) String() string      { return name(pointNames, p) }
func (v Variance) String() string   { return name(varianceNames, v) }
func (c CI) String() string         { return name(ciNames, c) }
func (r Resampling) String() string { return name(resamplingNames, r) }

// Valid reports whether p is a known point estimator.
func (p Point) Valid() bool {
	_, ok := pointNames[p]
	return ok
}

// Valid reports whether v is a known variance estimator.
func (v Variance) Valid() bool {
	_, ok := varianceNames[v]
	return ok
}

// Valid reports whether c is a known interval method.
func (c CI) Valid() bool {
	_, ok := ciNames[c]
	return ok
}

// Valid reports whether r is a known resampling scheme.
func (r Resampling) Valid() bool {
	_, ok := resamplingNames[r]
	return ok
}

// ParsePoint parses a point estimator name or code.
func ParsePoint(s string) (Point, error) { return parse(pointNames, "point method", s) }

// ParseVariance parses a variance estimator name or code.
func ParseVariance(s string) (Variance, error) { return parse(varianceNames, "variance method", s) }

// ParseCI parses an interval method name or code.
func ParseCI(s string) (CI, error) { return parse(ciNames, "ci method", s) }

// ParseResampling parses a resampling scheme name or code.
func ParseResampling(s string) (Resampling, error) {
	return parse(resamplingNames, "bootstrap method", s)
}

// PointFromCode maps a legacy numeric code.
func PointFromCode(code uint) (Point, error) { return fromCode(pointNames, "point method", code) }

// VarianceFromCode maps a legacy numeric code.
func VarianceFromCode(code uint) (Variance, error) {
	return fromCode(varianceNames, "variance method", code)
}

// CIFromCode maps a legacy numeric code.
func CIFromCode(code uint) (CI, error) { return fromCode(ciNames, "ci method", code) }

// ResamplingFromCode maps a legacy numeric code.
func ResamplingFromCode(code uint) (Resampling, error) {
	return fromCode(resamplingNames, "bootstrap method", code)
}

// MarshalText implements encoding.TextMarshaler.
func (p Point) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Point) UnmarshalText(b []byte) error {
	v, err := ParsePoint(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Variance) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variance) UnmarshalText(b []byte) error {
	x, err := ParseVariance(string(b))
	if err != nil {
		return err
	}
	*v = x
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c CI) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CI) UnmarshalText(b []byte) error {
	x, err := ParseCI(string(b))
	if err != nil {
		return err
	}
	*c = x
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Resampling) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Resampling) UnmarshalText(b []byte) error {
	x, err := ParseResampling(string(b))
	if err != nil {
		return err
	}
	*r = x
	return nil
}
