package loadtest

import (
	"errors"
	"testing"

	"github.com/okian/mcf/internal/domain/eventtable"
	"github.com/okian/mcf/internal/domain/method"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given the default cohort", t, func() {
		c := DefaultCohort()
		So(c.Validate(), ShouldBeNil)

		Convey("When generating a dataset", func() {
			in := Generate(Stream(42, 0), c)

			Convey("Then it should form a valid event table", func() {
				So(in.Validate(), ShouldBeNil)
				table, err := eventtable.Build(in)
				So(err, ShouldBeNil)
				So(len(table.Subjects), ShouldEqual, c.Subjects)
			})

			Convey("And every subject should end with a censored interval", func() {
				last := map[uint64]float64{}
				for i, id := range in.ID {
					last[id] = in.Event[i]
					So(in.Time1[i], ShouldBeLessThan, in.Time2[i])
					So(in.Time2[i], ShouldBeLessThanOrEqualTo, c.Horizon)
				}
				for _, ev := range last {
					So(ev, ShouldEqual, 0)
				}
			})

			Convey("And the same stream should reproduce it", func() {
				So(Generate(Stream(42, 0), c), ShouldResemble, in)
				So(Generate(Stream(42, 1), c), ShouldNotResemble, in)
			})
		})

		Convey("When the event rate is zero", func() {
			c.Rate = 0
			in := Generate(Stream(1, 0), c)

			Convey("Then every subject should have a single censored interval", func() {
				So(in.Len(), ShouldEqual, c.Subjects)
				for _, ev := range in.Event {
					So(ev, ShouldEqual, 0)
				}
			})
		})
	})

	Convey("Given invalid cohorts", t, func() {
		cases := []func(*Cohort){
			func(c *Cohort) { c.Subjects = 0 },
			func(c *Cohort) { c.Horizon = 0 },
			func(c *Cohort) { c.Rate = -1 },
			func(c *Cohort) { c.LateEntry = 1.5 },
			func(c *Cohort) { c.Dropout = -0.1 },
		}
		for _, mutate := range cases {
			c := DefaultCohort()
			mutate(&c)
			So(errors.Is(c.Validate(), ErrInvalidCohort), ShouldBeTrue)
		}
	})
}

func TestNewRequest(t *testing.T) {
	Convey("Given a config without methods", t, func() {
		req := newRequest(&Config{}, eventtable.Input{})

		Convey("Then the server defaults apply", func() {
			So(req.Point, ShouldBeNil)
			So(req.Variance, ShouldBeNil)
			So(req.BootstrapB, ShouldBeNil)
		})
	})

	Convey("Given a bootstrap config", t, func() {
		set := method.Set{Point: method.RiskAdjusted, Variance: method.Bootstrap, CI: method.Percentile, Resampling: method.Stratified}
		req := newRequest(&Config{Methods: &set, Replicates: 25}, eventtable.Input{})

		Convey("Then every selector is sent", func() {
			So(*req.Variance, ShouldEqual, method.Bootstrap)
			So(*req.Resampling, ShouldEqual, method.Stratified)
			So(*req.BootstrapB, ShouldEqual, uint(25))
		})
	})

	Convey("Given a closed form config", t, func() {
		set := method.Set{Point: method.SampleMean, Variance: method.CSV, CI: method.Normal}
		req := newRequest(&Config{Methods: &set}, eventtable.Input{})

		Convey("Then no resampling scheme is sent", func() {
			So(req.Resampling, ShouldBeNil)
		})
	})
}
