package bootstrap

import (
	"math/rand/v2"
	"testing"

	"github.com/okian/mcf/internal/domain/method"
	"github.com/okian/mcf/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func subjectsWithEvents(events ...float64) []model.Subject {
	out := make([]model.Subject, len(events))
	for i, ev := range events {
		out[i] = model.Subject{
			ID:        uint64(i + 1),
			Intervals: []model.Interval{{Start: 0, End: 5, Event: ev}},
		}
	}
	return out
}

func TestSampler(t *testing.T) {
	Convey("Given two subjects with events and three without", t, func() {
		subjects := subjectsWithEvents(1, 0, 1, 0, 0)

		Convey("When drawing stratified samples", func() {
			s := newSampler(subjects, method.Stratified)
			dst := make([]model.Subject, len(subjects))

			Convey("Then each draw keeps the stratum sizes", func() {
				for b := uint64(0); b < 25; b++ {
					s.draw(rand.New(rand.NewPCG(11, b)), dst)
					with := 0
					for _, sub := range dst {
						if sub.EventCount() > 0 {
							with++
						}
					}
					So(with, ShouldEqual, 2)
				}
			})
		})

		Convey("When drawing plain samples with the same stream", func() {
			s := newSampler(subjects, method.Subjects)
			a := make([]model.Subject, len(subjects))
			b := make([]model.Subject, len(subjects))
			s.draw(rand.New(rand.NewPCG(3, 4)), a)
			s.draw(rand.New(rand.NewPCG(3, 4)), b)

			Convey("Then the draws are identical", func() {
				So(a, ShouldResemble, b)
			})
		})
	})
}

func TestAccumulatorMerge(t *testing.T) {
	Convey("Given values split across two accumulators", t, func() {
		whole := newAccumulator(1)
		left, right := newAccumulator(1), newAccumulator(1)
		for i, v := range []float64{1, 2, 4, 8} {
			whole.add([]float64{v})
			if i < 2 {
				left.add([]float64{v})
			} else {
				right.add([]float64{v})
			}
		}

		Convey("When merging them", func() {
			merged := newAccumulator(1)
			merged.merge(left)
			merged.merge(right)

			Convey("Then the moments match a single pass", func() {
				So(merged.n, ShouldEqual, 4)
				So(merged.mean[0], ShouldAlmostEqual, whole.mean[0], 1e-12)
				So(merged.variance()[0], ShouldAlmostEqual, whole.variance()[0], 1e-12)
			})
		})
	})
}
