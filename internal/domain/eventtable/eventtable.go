// Package eventtable turns raw interval rows into per-subject interval lists
// and a time-ordered log of interval endpoints.
package eventtable

import (
	"math"
	"sort"

	"github.com/okian/mcf/internal/domain/model"
)

// Input holds caller-owned parallel arrays, one row per subject interval.
type Input struct {
	Time1 []float64 `json:"time1" yaml:"time1"`
	Time2 []float64 `json:"time2" yaml:"time2"`
	ID    []uint64  `json:"id" yaml:"id"`
	Event []float64 `json:"event" yaml:"event"`
}

// Len returns the row count, valid only after Validate succeeds.
func (in Input) Len() int { return len(in.Time1) }

// Validate checks the array lengths once at entry.
func (in Input) Validate() error {
	const op = "eventtable.validate"
	n := len(in.Time1)
	switch {
	case len(in.Time2) != n:
		return model.NewKind(op, model.ErrLengthMismatch, "time2 length differs from time1")
	case len(in.ID) != n:
		return model.NewKind(op, model.ErrLengthMismatch, "id length differs from time1")
	case len(in.Event) != n:
		return model.NewKind(op, model.ErrLengthMismatch, "event length differs from time1")
	case n == 0:
		return model.NewKind(op, model.ErrEmptyInput, "no rows")
	}
	return nil
}

// Table is the normalized event log.
type Table struct {
	Subjects []model.Subject
	Records  []model.EventRecord
}

// Build validates rows and produces the table. Subjects are ordered by id.
func Build(in Input) (*Table, error) {
	const op = "eventtable.build"
	if err := in.Validate(); err != nil {
		return nil, err
	}

	type row struct {
		index int
		iv    model.Interval
	}
	byID := make(map[uint64][]row)
	for i := range in.Time1 {
		t1, t2, ev := in.Time1[i], in.Time2[i], in.Event[i]
		if !finite(t1) || !finite(t2) {
			return nil, model.NewKind(op, model.ErrInvalidInterval, "non-finite endpoint").
				WithRow(i).WithSubject(in.ID[i])
		}
		if t1 >= t2 {
			return nil, model.NewKind(op, model.ErrInvalidInterval, "time1 must be less than time2").
				WithRow(i).WithSubject(in.ID[i]).WithTime(t1)
		}
		if ev != 0 && ev != 1 {
			return nil, model.NewKind(op, model.ErrInvalidEvent, "event must be 0 or 1").
				WithRow(i).WithSubject(in.ID[i]).WithTime(t2)
		}
		byID[in.ID[i]] = append(byID[in.ID[i]], row{index: i, iv: model.Interval{Start: t1, End: t2, Event: ev}})
	}

	ids := make([]uint64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	subjects := make([]model.Subject, 0, len(ids))
	for _, id := range ids {
		rows := byID[id]
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].iv.Start < rows[b].iv.Start })
		ivs := make([]model.Interval, len(rows))
		for k, r := range rows {
			if k > 0 {
				prev := rows[k-1].iv
				switch {
				case r.iv.Start > prev.End:
					return nil, model.NewKind(op, model.ErrInconsistentSubject, "gap between intervals").
						WithSubject(id).WithRow(r.index).WithTime(prev.End)
				case r.iv.Start < prev.End:
					return nil, model.NewKind(op, model.ErrInconsistentSubject, "overlapping intervals").
						WithSubject(id).WithRow(r.index).WithTime(r.iv.Start)
				}
			}
			ivs[k] = r.iv
		}
		subjects = append(subjects, model.Subject{ID: id, Intervals: ivs})
	}

	return FromSubjects(subjects), nil
}

// FromSubjects flattens already validated subjects. Subjects keep their
// positions, so a resampled collection may repeat an id.
func FromSubjects(subjects []model.Subject) *Table {
	n := 0
	for _, s := range subjects {
		n += len(s.Intervals) + 1
	}
	records := make([]model.EventRecord, 0, n)
	for pos, s := range subjects {
		if len(s.Intervals) == 0 {
			continue
		}
		records = append(records, model.EventRecord{
			SubjectID: s.ID,
			Subject:   pos,
			Time:      s.Entry(),
			Kind:      model.RecordEntry,
		})
		last := len(s.Intervals) - 1
		for k, iv := range s.Intervals {
			kind := model.RecordInterior
			if k == last {
				kind = model.RecordExit
			}
			records = append(records, model.EventRecord{
				SubjectID: s.ID,
				Subject:   pos,
				Time:      iv.End,
				Events:    iv.Event,
				Kind:      kind,
			})
		}
	}
	sort.SliceStable(records, func(a, b int) bool {
		ra, rb := records[a], records[b]
		if ra.Time != rb.Time {
			return ra.Time < rb.Time
		}
		if ra.Subject != rb.Subject {
			return ra.Subject < rb.Subject
		}
		return ra.Kind < rb.Kind
	})
	return &Table{Subjects: subjects, Records: records}
}

// EventCounts returns, per subject position, the event count at each time.
func (t *Table) EventCounts() []map[float64]float64 {
	out := make([]map[float64]float64, len(t.Subjects))
	for _, r := range t.Records {
		if r.Events == 0 {
			continue
		}
		if out[r.Subject] == nil {
			out[r.Subject] = make(map[float64]float64)
		}
		out[r.Subject][r.Time] += r.Events
	}
	return out
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
