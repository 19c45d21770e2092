package confint_test

import (
	"errors"
	"math"
	"testing"

	confint "github.com/okian/mcf/internal/domain/confint"
	method "github.com/okian/mcf/internal/domain/method"
	model "github.com/okian/mcf/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQuantile(t *testing.T) {
	Convey("Given common confidence levels", t, func() {
		z95, err := confint.Quantile(0.95)
		So(err, ShouldBeNil)
		z90, _ := confint.Quantile(0.90)

		Convey("Then the normal quantiles match the tables", func() {
			So(z95, ShouldAlmostEqual, 1.959964, 1e-6)
			So(z90, ShouldAlmostEqual, 1.644854, 1e-6)
		})
	})

	Convey("Given levels outside (0, 1)", t, func() {
		for _, level := range []float64{0, 1, 1.5, -0.2, math.NaN()} {
			_, err := confint.Quantile(level)
			So(errors.Is(err, model.ErrInvalidLevel), ShouldBeTrue)
		}
	})
}

func TestBuild(t *testing.T) {
	estimate := []float64{0, 0.5, 1.5}
	variance := []float64{0, 0.25, 1.25}

	Convey("Given an estimate with its variance", t, func() {
		Convey("When building a normal interval", func() {
			band, err := confint.Build(estimate, variance, method.Normal, 0.95, nil)

			Convey("Then bounds are symmetric and floored at zero", func() {
				So(err, ShouldBeNil)
				So(band.Lower[0], ShouldEqual, 0)
				So(band.Upper[0], ShouldEqual, 0)
				So(band.Lower[1], ShouldEqual, 0)
				So(band.Upper[1], ShouldAlmostEqual, 0.5+1.959964*0.5, 1e-6)
				So(band.Upper[2]-1.5, ShouldAlmostEqual, 1.959964*math.Sqrt(1.25), 1e-6)
			})
		})

		Convey("When building a log-normal interval", func() {
			band, err := confint.Build(estimate, variance, method.LogNormal, 0.95, nil)

			Convey("Then the lower bound stays positive and brackets the estimate", func() {
				So(err, ShouldBeNil)
				So(band.Lower[0], ShouldEqual, 0)
				So(band.Upper[0], ShouldEqual, 0)
				for i := 1; i < len(estimate); i++ {
					So(band.Lower[i], ShouldBeGreaterThan, 0)
					So(band.Lower[i], ShouldBeLessThanOrEqualTo, estimate[i])
					So(band.Upper[i], ShouldBeGreaterThanOrEqualTo, estimate[i])
					So(band.Lower[i]*band.Upper[i], ShouldAlmostEqual, estimate[i]*estimate[i], 1e-9)
				}
			})
		})

		Convey("When the level is invalid", func() {
			_, err := confint.Build(estimate, variance, method.Normal, 1.5, nil)
			So(errors.Is(err, model.ErrInvalidLevel), ShouldBeTrue)
		})

		Convey("When the variance is misaligned", func() {
			_, err := confint.Build(estimate, variance[:2], method.Normal, 0.95, nil)
			So(errors.Is(err, model.ErrLengthMismatch), ShouldBeTrue)
		})
	})

	Convey("Given bootstrap replicates", t, func() {
		est := []float64{1, 2}
		replicates := [][]float64{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}

		Convey("When building a percentile interval", func() {
			band, err := confint.Build(est, []float64{0, 0}, method.Percentile, 0.5, replicates)

			Convey("Then bounds are interpolated quantiles", func() {
				So(err, ShouldBeNil)
				So(band.Lower, ShouldResemble, []float64{1, 2})
				So(band.Upper, ShouldResemble, []float64{3, 4})
			})
		})

		Convey("When the estimate lies outside the replicate quantiles", func() {
			band, err := confint.Build([]float64{10, 0}, []float64{0, 0}, method.Percentile, 0.5, replicates)

			Convey("Then the band is widened to contain it", func() {
				So(err, ShouldBeNil)
				So(band.Upper[0], ShouldEqual, 10)
				So(band.Lower[1], ShouldEqual, 0)
			})
		})

		Convey("When no replicates are supplied", func() {
			_, err := confint.Build(est, []float64{0, 0}, method.Percentile, 0.95, nil)
			So(errors.Is(err, model.ErrUnsupportedMethodCombination), ShouldBeTrue)
		})
	})
}
