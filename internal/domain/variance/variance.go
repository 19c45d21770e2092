// Package variance implements the closed-form variance estimators of the MCF.
//
// With event times t_j, at-risk counts Y_j, event counts d_j, increments
// dμ_j, the at-risk indicator δ_ij of subject i at t_j and its event count
// n_ij:
//
//	Poisson:        Var(t) = Σ_{t_j<=t} d_j / Y_j²
//	Lawless-Nadeau: Var(t) = Σ_i ( Σ_{t_j<=t} δ_ij (n_ij - dμ_j) / Y_j )²
//	CSV:            Var(t) = S²(t) / n, S² the sample variance of the
//	                subject cumulative counts N_i(t)
//
// Bootstrap variance lives in package bootstrap.
package variance

import (
	"math"

	"github.com/okian/mcf/internal/domain/eventtable"
	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/internal/domain/point"
)

// Compute returns one variance per jump time of est.
func Compute(est point.Estimate, table *eventtable.Table, set method.Set) ([]float64, error) {
	const op = "variance.compute"
	if !method.Supports(set.Point, set.Variance) || set.Variance == method.Bootstrap {
		return nil, model.NewKind(op, model.ErrUnsupportedMethodCombination,
			"no closed form for this combination").
			WithMethod(set.Point.String() + "/" + set.Variance.String())
	}

	var out []float64
	switch set.Variance {
	case method.VarianceNone:
		out = make([]float64, est.Len())
	case method.Poisson:
		out = poisson(est)
	case method.LawlessNadeau:
		out = lawlessNadeau(est, table)
	case method.CSV:
		out = cumulativeSample(est, table)
	}
	for i, v := range out {
		out[i] = math.Max(0, v)
	}
	return out, nil
}

func poisson(est point.Estimate) []float64 {
	out := make([]float64, est.Len())
	var acc float64
	for j := range est.Times {
		y := est.AtRisk[j]
		acc += est.Events[j] / (y * y)
		out[j] = acc
	}
	return out
}

func lawlessNadeau(est point.Estimate, table *eventtable.Table) []float64 {
	out := make([]float64, est.Len())
	counts := table.EventCounts()
	for i, s := range table.Subjects {
		entry, exit := s.Entry(), s.Exit()
		c := counts[i]
		var e float64
		for j, t := range est.Times {
			if t > entry && t <= exit {
				e += (c[t] - est.Increments[j]) / est.AtRisk[j]
			}
			out[j] += e * e
		}
	}
	return out
}

func cumulativeSample(est point.Estimate, table *eventtable.Table) []float64 {
	n := float64(len(table.Subjects))
	out := make([]float64, est.Len())
	if n < 2 {
		return out
	}
	counts := table.EventCounts()
	for i := range table.Subjects {
		c := counts[i]
		var cum float64
		for j, t := range est.Times {
			cum += c[t]
			d := cum - est.Values[j]
			out[j] += d * d
		}
	}
	for j := range out {
		out[j] /= n * (n - 1)
	}
	return out
}
