// Package model contains domain models passed between layers.
package model

import "time"

// Interval is one observation window (Start, End] of a subject. Event is the
// indicator recorded at End: 0 for censoring or no event, 1 for an event.
type Interval struct {
	Start float64
	End   float64
	Event float64
}

// Subject is a single recurrent-event process with contiguous intervals.
type Subject struct {
	ID        uint64
	Intervals []Interval
}

// Entry returns the time the subject enters observation.
func (s Subject) Entry() float64 {
	if len(s.Intervals) == 0 {
		return 0
	}
	return s.Intervals[0].Start
}

// Exit returns the time the subject leaves observation.
func (s Subject) Exit() float64 {
	if len(s.Intervals) == 0 {
		return 0
	}
	return s.Intervals[len(s.Intervals)-1].End
}

// EventCount returns the number of events recorded for the subject.
func (s Subject) EventCount() float64 {
	var n float64
	for _, iv := range s.Intervals {
		n += iv.Event
	}
	return n
}

// RecordKind classifies an interval endpoint in the flattened event log.
type RecordKind uint8

// Record kinds. The order is the tie-break order at identical times.
const (
	RecordEntry RecordKind = iota
	RecordInterior
	RecordExit
)

func (k RecordKind) String() string {
	switch k {
	case RecordEntry:
		return "entry"
	case RecordInterior:
		return "interior"
	case RecordExit:
		return "exit"
	default:
		return "unknown"
	}
}

// EventRecord is one interval endpoint of one subject.
type EventRecord struct {
	SubjectID uint64     // caller supplied id
	Subject   int        // position of the subject in the table
	Time      float64    // endpoint time
	Events    float64    // events observed at Time (always 0 for entries)
	Kind      RecordKind // entry, interior or exit endpoint
}

// AtRisk reports whether the subject stays under observation after Time.
func (r EventRecord) AtRisk() bool { return r.Kind != RecordExit }

// Snapshot is the risk set at one distinct time.
type Snapshot struct {
	Time   float64
	AtRisk float64 // subjects under observation at Time
	Events float64 // events observed at Time
}

// Curve is a right-continuous step function sampled at its jump times.
type Curve struct {
	Times    []float64
	Estimate []float64
	Variance []float64
}

// At evaluates the curve at t: the value at the largest jump time <= t, or 0
// before the first jump.
func (c Curve) At(t float64) float64 {
	return StepAt(c.Times, c.Estimate, t)
}

// StepAt evaluates the right-continuous step function given by jump times
// and post-jump values at t.
func StepAt(times, values []float64, t float64) float64 {
	lo, hi := 0, len(times)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if times[mid] <= t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0
	}
	return values[lo-1]
}

// Band holds per-time confidence bounds.
type Band struct {
	Lower []float64
	Upper []float64
}

// Methods names the estimators that produced a Result.
type Methods struct {
	Point      string `json:"point_method"`
	Variance   string `json:"var_method"`
	CI         string `json:"ci_method"`
	Resampling string `json:"var_bootstrap_method"`
}

// Result is the complete output of one estimation call.
type Result struct {
	ID         string    `json:"id,omitempty"`
	Times      []float64 `json:"times"`
	MCF        []float64 `json:"mcf"`
	Variance   []float64 `json:"variance"`
	Lower      []float64 `json:"ci_lower"`
	Upper      []float64 `json:"ci_upper"`
	AtRisk     []float64 `json:"at_risk"`
	Events     []float64 `json:"events"`
	Excluded   []float64 `json:"excluded,omitempty"`
	Subjects   int       `json:"subjects"`
	Methods    Methods   `json:"methods"`
	Level      float64   `json:"ci_level"`
	BootstrapB uint      `json:"var_bootstrap_B,omitempty"`
	Seed       *uint64   `json:"seed,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Len returns the number of time points in the result.
func (r *Result) Len() int { return len(r.Times) }
