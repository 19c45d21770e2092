package eventtable_test

import (
	"errors"
	"math"
	"testing"

	eventtable "github.com/okian/mcf/internal/domain/eventtable"
	model "github.com/okian/mcf/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInputValidate(t *testing.T) {
	Convey("Given parallel input arrays", t, func() {
		Convey("When id and event lengths differ", func() {
			in := eventtable.Input{
				Time1: []float64{0, 0},
				Time2: []float64{1, 2},
				ID:    []uint64{1, 2},
				Event: []float64{1},
			}
			err := in.Validate()

			Convey("Then it fails with a length mismatch naming the array", func() {
				So(errors.Is(err, model.ErrLengthMismatch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "event length")
			})
		})

		Convey("When there are no rows", func() {
			err := eventtable.Input{}.Validate()
			So(errors.Is(err, model.ErrEmptyInput), ShouldBeTrue)
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("Given rows for two subjects in shuffled order", t, func() {
		in := eventtable.Input{
			Time1: []float64{3, 0, 0},
			Time2: []float64{5, 3, 4},
			ID:    []uint64{7, 7, 2},
			Event: []float64{0, 1, 0},
		}

		Convey("When building the table", func() {
			table, err := eventtable.Build(in)
			So(err, ShouldBeNil)

			Convey("Then subjects are ordered by id with sorted intervals", func() {
				So(len(table.Subjects), ShouldEqual, 2)
				So(table.Subjects[0].ID, ShouldEqual, 2)
				So(table.Subjects[1].ID, ShouldEqual, 7)
				So(table.Subjects[1].Intervals[0].End, ShouldEqual, 3)
				So(table.Subjects[1].Entry(), ShouldEqual, 0)
				So(table.Subjects[1].Exit(), ShouldEqual, 5)
				So(table.Subjects[1].EventCount(), ShouldEqual, 1)
			})

			Convey("Then records are time ordered with deterministic ties", func() {
				times := make([]float64, len(table.Records))
				for i, r := range table.Records {
					times[i] = r.Time
				}
				So(times, ShouldResemble, []float64{0, 0, 3, 4, 5})
				So(table.Records[0].Subject, ShouldEqual, 0)
				So(table.Records[1].Subject, ShouldEqual, 1)
				So(table.Records[2].Kind, ShouldEqual, model.RecordInterior)
				So(table.Records[2].Events, ShouldEqual, 1)
				So(table.Records[3].Kind, ShouldEqual, model.RecordExit)
				So(table.Records[3].AtRisk(), ShouldBeFalse)
				So(table.Records[0].AtRisk(), ShouldBeTrue)
			})

			Convey("Then event counts are indexed by subject position", func() {
				counts := table.EventCounts()
				So(counts[0], ShouldBeNil)
				So(counts[1][3], ShouldEqual, 1)
			})
		})
	})

	Convey("Given invalid rows", t, func() {
		Convey("When time1 equals time2", func() {
			_, err := eventtable.Build(eventtable.Input{
				Time1: []float64{0, 2},
				Time2: []float64{2, 2},
				ID:    []uint64{1, 1},
				Event: []float64{0, 0},
			})

			Convey("Then it fails with an invalid interval naming the row", func() {
				So(errors.Is(err, model.ErrInvalidInterval), ShouldBeTrue)
				var e *model.Error
				So(errors.As(err, &e), ShouldBeTrue)
				So(e.Row, ShouldEqual, 1)
				So(*e.SubjectID, ShouldEqual, 1)
			})
		})

		Convey("When an endpoint is not finite", func() {
			_, err := eventtable.Build(eventtable.Input{
				Time1: []float64{0},
				Time2: []float64{math.Inf(1)},
				ID:    []uint64{1},
				Event: []float64{0},
			})
			So(errors.Is(err, model.ErrInvalidInterval), ShouldBeTrue)
		})

		Convey("When an event indicator is not 0 or 1", func() {
			_, err := eventtable.Build(eventtable.Input{
				Time1: []float64{0},
				Time2: []float64{1},
				ID:    []uint64{1},
				Event: []float64{2},
			})
			So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)
		})

		Convey("When a subject has a gap", func() {
			_, err := eventtable.Build(eventtable.Input{
				Time1: []float64{0, 3},
				Time2: []float64{2, 5},
				ID:    []uint64{4, 4},
				Event: []float64{1, 0},
			})
			So(errors.Is(err, model.ErrInconsistentSubject), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "gap")
			So(err.Error(), ShouldContainSubstring, "subject 4")
		})

		Convey("When a subject has overlapping intervals", func() {
			_, err := eventtable.Build(eventtable.Input{
				Time1: []float64{0, 1},
				Time2: []float64{2, 5},
				ID:    []uint64{4, 4},
				Event: []float64{1, 0},
			})
			So(errors.Is(err, model.ErrInconsistentSubject), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "overlapping")
		})
	})
}

func TestFromSubjects(t *testing.T) {
	Convey("Given a resampled collection that repeats a subject", t, func() {
		s := model.Subject{ID: 1, Intervals: []model.Interval{{Start: 0, End: 2, Event: 1}}}
		table := eventtable.FromSubjects([]model.Subject{s, s})

		Convey("Then each copy has its own position", func() {
			So(len(table.Records), ShouldEqual, 4)
			So(table.Records[0].Subject, ShouldEqual, 0)
			So(table.Records[1].Subject, ShouldEqual, 1)
			So(table.Records[2].SubjectID, ShouldEqual, 1)
		})
	})
}
