// Package confint builds pointwise confidence bands around an MCF estimate.
package confint

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
)

// Quantile returns the two-sided standard normal quantile for level, the z
// with P(|Z| <= z) = level.
func Quantile(level float64) (float64, error) {
	if err := ValidateLevel(level); err != nil {
		return 0, err
	}
	return math.Sqrt2 * math.Erfinv(level), nil
}

// ValidateLevel rejects levels outside the open interval (0, 1), NaN included.
func ValidateLevel(level float64) error {
	if !(level > 0 && level < 1) {
		return model.NewKind("confint.level", model.ErrInvalidLevel,
			fmt.Sprintf("level %g must be strictly between 0 and 1", level))
	}
	return nil
}

// Build returns lower and upper bounds per time. replicates is only read by
// the percentile method and holds one bootstrap curve per row.
func Build(estimate, variance []float64, m method.CI, level float64, replicates [][]float64) (model.Band, error) {
	const op = "confint.build"
	if err := ValidateLevel(level); err != nil {
		return model.Band{}, err
	}
	if len(variance) != len(estimate) {
		return model.Band{}, model.NewKind(op, model.ErrLengthMismatch, "variance length differs from estimate")
	}

	switch m {
	case method.Normal:
		return normal(estimate, variance, level), nil
	case method.LogNormal:
		return logNormal(estimate, variance, level), nil
	case method.Percentile:
		if len(replicates) == 0 {
			return model.Band{}, model.NewKind(op, model.ErrUnsupportedMethodCombination,
				"percentile interval needs bootstrap replicates").WithMethod(m.String())
		}
		return percentile(estimate, replicates, level)
	}
	return model.Band{}, model.NewKind(op, model.ErrUnsupportedMethodCombination,
		"unknown ci method").WithMethod(m.String())
}

// normal is estimate ± z·se with the lower bound floored at zero.
func normal(estimate, variance []float64, level float64) model.Band {
	z, _ := Quantile(level)
	band := newBand(len(estimate))
	for i, mu := range estimate {
		half := z * math.Sqrt(math.Max(0, variance[i]))
		band.Lower[i] = math.Max(0, mu-half)
		band.Upper[i] = mu + half
	}
	return band
}

// logNormal applies the delta method on the log scale: mu·exp(∓z·se/mu).
// A zero estimate yields a degenerate [0, 0] interval.
func logNormal(estimate, variance []float64, level float64) model.Band {
	z, _ := Quantile(level)
	band := newBand(len(estimate))
	for i, mu := range estimate {
		if mu <= 0 {
			continue
		}
		w := math.Exp(z * math.Sqrt(math.Max(0, variance[i])) / mu)
		band.Lower[i] = mu / w
		band.Upper[i] = mu * w
	}
	return band
}

// percentile takes the (1∓level)/2 quantiles of the replicate values and
// widens the band to contain the estimate.
func percentile(estimate []float64, replicates [][]float64, level float64) (model.Band, error) {
	const op = "confint.percentile"
	alpha := (1 - level) / 2
	band := newBand(len(estimate))
	col := make([]float64, len(replicates))
	for i, mu := range estimate {
		for b, row := range replicates {
			if len(row) != len(estimate) {
				return model.Band{}, model.NewKind(op, model.ErrLengthMismatch,
					"replicate length differs from estimate").WithRow(b)
			}
			col[b] = row[i]
		}
		sort.Float64s(col)
		band.Lower[i] = math.Max(0, math.Min(mu, quantile(col, alpha)))
		band.Upper[i] = math.Max(mu, quantile(col, 1-alpha))
	}
	return band, nil
}

// quantile interpolates linearly between order statistics of sorted.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	hi := min(lo+1, len(sorted)-1)
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func newBand(n int) model.Band {
	return model.Band{Lower: make([]float64, n), Upper: make([]float64, n)}
}
