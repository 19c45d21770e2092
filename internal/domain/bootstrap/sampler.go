package bootstrap

import (
	"math/rand/v2"

	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
)

// sampler draws resampled subject collections of the original size.
type sampler struct {
	subjects []model.Subject
	// strata holds subject positions; a single stratum for plain resampling.
	strata [][]int
}

func newSampler(subjects []model.Subject, scheme method.Resampling) *sampler {
	s := &sampler{subjects: subjects}
	if scheme == method.Stratified {
		var with, without []int
		for i, sub := range subjects {
			if sub.EventCount() > 0 {
				with = append(with, i)
			} else {
				without = append(without, i)
			}
		}
		for _, st := range [][]int{with, without} {
			if len(st) > 0 {
				s.strata = append(s.strata, st)
			}
		}
		return s
	}
	all := make([]int, len(subjects))
	for i := range all {
		all[i] = i
	}
	s.strata = [][]int{all}
	return s
}

// draw fills dst with subjects drawn with replacement within each stratum.
// len(dst) must equal the number of subjects.
func (s *sampler) draw(rng *rand.Rand, dst []model.Subject) {
	k := 0
	for _, st := range s.strata {
		for range st {
			dst[k] = s.subjects[st[rng.IntN(len(st))]]
			k++
		}
	}
}
