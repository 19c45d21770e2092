package point_test

import (
	"errors"
	"testing"

	method "github.com/okian/mcf/internal/domain/method"
	model "github.com/okian/mcf/internal/domain/model"
	point "github.com/okian/mcf/internal/domain/point"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompute(t *testing.T) {
	snaps := []model.Snapshot{
		{Time: 0, AtRisk: 0, Events: 0},
		{Time: 2, AtRisk: 4, Events: 1},
		{Time: 3, AtRisk: 4, Events: 0},
		{Time: 5, AtRisk: 2, Events: 2},
	}

	Convey("Given risk set snapshots", t, func() {
		Convey("When using the risk-adjusted estimator", func() {
			est, err := point.Compute(snaps, method.RiskAdjusted, 4)
			So(err, ShouldBeNil)

			Convey("Then only event times are kept and increments are d/Y", func() {
				So(est.Times, ShouldResemble, []float64{2, 5})
				So(est.Increments, ShouldResemble, []float64{0.25, 1})
				So(est.Values, ShouldResemble, []float64{0.25, 1.25})
				So(est.AtRisk, ShouldResemble, []float64{4, 2})
			})

			Convey("Then lookup is right-continuous", func() {
				So(est.At(1.9), ShouldEqual, 0)
				So(est.At(2), ShouldEqual, 0.25)
				So(est.At(4.9), ShouldEqual, 0.25)
				So(est.At(100), ShouldEqual, 1.25)
			})
		})

		Convey("When using the sample mean estimator", func() {
			est, err := point.Compute(snaps, method.SampleMean, 4)
			So(err, ShouldBeNil)

			Convey("Then increments divide by the number of subjects", func() {
				So(est.Values, ShouldResemble, []float64{0.25, 0.75})
			})
		})

		Convey("When the point method is unknown", func() {
			_, err := point.Compute(snaps, method.Point(9), 4)
			So(errors.Is(err, model.ErrUnsupportedMethodCombination), ShouldBeTrue)
		})
	})

	Convey("Given a degenerate snapshot", t, func() {
		bad := []model.Snapshot{
			{Time: 1, AtRisk: 1, Events: 1},
			{Time: 2, AtRisk: 0, Events: 1},
			{Time: 3, AtRisk: 1, Events: 1},
		}

		Convey("When the policy is fail", func() {
			_, err := point.Compute(bad, method.RiskAdjusted, 1)

			Convey("Then the call fails naming the time", func() {
				So(errors.Is(err, model.ErrDegenerateRiskSet), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "time 2")
			})
		})

		Convey("When the policy is exclude", func() {
			est, err := point.Compute(bad, method.RiskAdjusted, 1, point.WithDegenerate(point.Exclude))

			Convey("Then the snapshot is dropped and reported", func() {
				So(err, ShouldBeNil)
				So(est.Times, ShouldResemble, []float64{1, 3})
				So(est.Values, ShouldResemble, []float64{1, 2})
				So(est.Excluded, ShouldResemble, []float64{2})
			})
		})

		Convey("When using the sample mean estimator", func() {
			est, err := point.Compute(bad, method.SampleMean, 1)

			Convey("Then the subject count is never zero", func() {
				So(err, ShouldBeNil)
				So(est.Len(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given policy names", t, func() {
		p, err := point.ParsePolicy("exclude")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, point.Exclude)

		_, err = point.ParsePolicy("ignore")
		So(err, ShouldNotBeNil)
	})
}
