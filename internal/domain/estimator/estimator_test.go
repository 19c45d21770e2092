package estimator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	eventtable "github.com/okian/mcf/internal/domain/eventtable"
	estimator "github.com/okian/mcf/internal/domain/estimator"
	method "github.com/okian/mcf/internal/domain/method"
	model "github.com/okian/mcf/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var fixed = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newEstimator() *estimator.Estimator {
	return estimator.New(estimator.WithWorkers(4), estimator.WithClock(func() time.Time { return fixed }))
}

func request(in eventtable.Input) estimator.Request {
	return estimator.Request{Input: in, Methods: method.Default(), Level: 0.95}
}

func twoSubjects() eventtable.Input {
	return eventtable.Input{
		Time1: []float64{0, 2, 5, 0},
		Time2: []float64{2, 5, 10, 4},
		ID:    []uint64{1, 1, 1, 2},
		Event: []float64{1, 1, 0, 0},
	}
}

func TestEstimateScenarios(t *testing.T) {
	ctx := context.Background()

	Convey("Given a single subject with one event", t, func() {
		res, err := newEstimator().Estimate(ctx, request(eventtable.Input{
			Time1: []float64{0, 3},
			Time2: []float64{3, 5},
			ID:    []uint64{1, 1},
			Event: []float64{1, 0},
		}))

		Convey("Then the MCF jumps to one at the event time", func() {
			So(err, ShouldBeNil)
			So(res.Times, ShouldResemble, []float64{3})
			So(res.MCF, ShouldResemble, []float64{1})
			So(res.AtRisk, ShouldResemble, []float64{1})
			So(res.Subjects, ShouldEqual, 1)
			So(res.CreatedAt, ShouldEqual, fixed)
		})
	})

	Convey("Given one subject censored before the other's second event", t, func() {
		res, err := newEstimator().Estimate(ctx, request(twoSubjects()))

		Convey("Then the second increment uses the smaller risk set", func() {
			So(err, ShouldBeNil)
			So(res.Times, ShouldResemble, []float64{2, 5})
			So(res.MCF, ShouldResemble, []float64{0.5, 1.5})
			So(res.AtRisk, ShouldResemble, []float64{2, 1})
			So(res.Variance, ShouldResemble, []float64{0.125, 0.125})
			So(res.Methods.Point, ShouldEqual, "risk-adjusted")
			So(res.Methods.Resampling, ShouldBeEmpty)
			So(res.Seed, ShouldBeNil)
		})

		Convey("Then every output sequence is aligned and bands bracket the estimate", func() {
			So(err, ShouldBeNil)
			for _, s := range [][]float64{res.MCF, res.Variance, res.Lower, res.Upper, res.AtRisk, res.Events} {
				So(len(s), ShouldEqual, res.Len())
			}
			for i := range res.MCF {
				So(res.Lower[i], ShouldBeGreaterThanOrEqualTo, 0)
				So(res.Lower[i], ShouldBeLessThanOrEqualTo, res.MCF[i])
				So(res.Upper[i], ShouldBeGreaterThanOrEqualTo, res.MCF[i])
			}
		})
	})

	Convey("Given subjects without any events", t, func() {
		res, err := newEstimator().Estimate(ctx, request(eventtable.Input{
			Time1: []float64{0, 0}, Time2: []float64{4, 6}, ID: []uint64{1, 2}, Event: []float64{0, 0},
		}))

		Convey("Then the result is empty but well formed", func() {
			So(err, ShouldBeNil)
			So(res.Len(), ShouldEqual, 0)
			So(res.MCF, ShouldNotBeNil)
			So(res.Lower, ShouldNotBeNil)
		})
	})
}

func TestEstimateErrors(t *testing.T) {
	ctx := context.Background()

	Convey("Given invalid requests", t, func() {
		Convey("When time1 is not before time2", func() {
			in := twoSubjects()
			in.Time1[1] = 5
			_, err := newEstimator().Estimate(ctx, request(in))

			Convey("Then the call fails with InvalidInterval", func() {
				So(errors.Is(err, model.ErrInvalidInterval), ShouldBeTrue)
				var me *model.Error
				So(errors.As(err, &me), ShouldBeTrue)
				So(*me.SubjectID, ShouldEqual, 1)
				So(me.Row, ShouldEqual, 1)
			})
		})

		Convey("When the level is outside (0, 1)", func() {
			req := request(twoSubjects())
			req.Level = 1.5
			_, err := newEstimator().Estimate(ctx, req)
			So(errors.Is(err, model.ErrInvalidLevel), ShouldBeTrue)
		})

		Convey("When id and event lengths differ", func() {
			in := twoSubjects()
			in.Event = in.Event[:3]
			_, err := newEstimator().Estimate(ctx, request(in))
			So(errors.Is(err, model.ErrLengthMismatch), ShouldBeTrue)
		})

		Convey("When the variance method does not fit the point method", func() {
			req := request(twoSubjects())
			req.Methods.Point = method.SampleMean
			req.Methods.Variance = method.Poisson
			_, err := newEstimator().Estimate(ctx, req)
			So(errors.Is(err, model.ErrUnsupportedMethodCombination), ShouldBeTrue)
		})

		Convey("When bootstrap is selected without replicates", func() {
			req := request(twoSubjects())
			req.Methods.Variance = method.Bootstrap
			_, err := newEstimator().Estimate(ctx, req)
			So(errors.Is(err, model.ErrInvalidReplicates), ShouldBeTrue)
		})

		Convey("When a subject has overlapping intervals", func() {
			in := twoSubjects()
			in.Time1[2] = 4
			_, err := newEstimator().Estimate(ctx, request(in))
			So(errors.Is(err, model.ErrInconsistentSubject), ShouldBeTrue)
		})
	})
}

func TestEstimateProperties(t *testing.T) {
	ctx := context.Background()
	in := eventtable.Input{
		Time1: []float64{0, 1, 4, 0, 3, 0, 2, 0},
		Time2: []float64{1, 4, 9, 3, 7, 2, 6, 5},
		ID:    []uint64{1, 1, 1, 2, 2, 3, 3, 4},
		Event: []float64{1, 1, 0, 1, 1, 1, 0, 0},
	}

	Convey("Given several subjects with staggered follow-up", t, func() {
		Convey("When estimating with every closed-form method", func() {
			for _, set := range []method.Set{
				{Point: method.RiskAdjusted, Variance: method.Poisson, CI: method.LogNormal},
				{Point: method.RiskAdjusted, Variance: method.LawlessNadeau, CI: method.Normal},
				{Point: method.SampleMean, Variance: method.CSV, CI: method.Normal},
			} {
				req := request(in)
				req.Methods = set
				res, err := newEstimator().Estimate(ctx, req)

				So(err, ShouldBeNil)
				So(res.MCF[0], ShouldBeGreaterThanOrEqualTo, 0)
				for i := 1; i < res.Len(); i++ {
					So(res.MCF[i], ShouldBeGreaterThanOrEqualTo, res.MCF[i-1])
				}
				for i := range res.Variance {
					So(res.Variance[i], ShouldBeGreaterThanOrEqualTo, 0)
					So(res.Lower[i], ShouldBeLessThanOrEqualTo, res.MCF[i])
					So(res.Upper[i], ShouldBeGreaterThanOrEqualTo, res.MCF[i])
				}
			}
		})

		Convey("When the rows are permuted", func() {
			order := []int{7, 2, 5, 0, 4, 1, 6, 3}
			shuffled := eventtable.Input{}
			for _, i := range order {
				shuffled.Time1 = append(shuffled.Time1, in.Time1[i])
				shuffled.Time2 = append(shuffled.Time2, in.Time2[i])
				shuffled.ID = append(shuffled.ID, in.ID[i])
				shuffled.Event = append(shuffled.Event, in.Event[i])
			}
			a, errA := newEstimator().Estimate(ctx, request(in))
			b, errB := newEstimator().Estimate(ctx, request(shuffled))

			Convey("Then the result does not change", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(b, ShouldResemble, a)
			})
		})

		Convey("When bootstrapping without a seed", func() {
			req := request(in)
			req.Methods.Variance = method.Bootstrap
			req.BootstrapB = 64
			first, err := newEstimator().Estimate(ctx, req)
			So(err, ShouldBeNil)
			So(first.Seed, ShouldNotBeNil)

			Convey("Then rerunning with the reported seed reproduces the variance", func() {
				req.Seed = first.Seed
				second, err := newEstimator().Estimate(ctx, req)
				So(err, ShouldBeNil)
				So(second.Variance, ShouldResemble, first.Variance)
				So(second.BootstrapB, ShouldEqual, 64)
				So(second.Methods.Resampling, ShouldEqual, "subjects")
			})
		})

		Convey("When bootstrapping with a percentile interval", func() {
			seed := uint64(2024)
			req := request(in)
			req.Methods = method.Set{Point: method.SampleMean, Variance: method.Bootstrap,
				CI: method.Percentile, Resampling: method.Stratified}
			req.BootstrapB = 100
			req.Seed = &seed
			res, err := newEstimator().Estimate(ctx, req)

			Convey("Then the band contains the estimate", func() {
				So(err, ShouldBeNil)
				So(*res.Seed, ShouldEqual, seed)
				for i := range res.MCF {
					So(res.Lower[i], ShouldBeLessThanOrEqualTo, res.MCF[i])
					So(res.Upper[i], ShouldBeGreaterThanOrEqualTo, res.MCF[i])
				}
			})
		})
	})
}
