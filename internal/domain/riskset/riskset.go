// Package riskset computes the risk set at every distinct time of an event log.
package riskset

import "github.com/okian/mcf/internal/domain/model"

// Compute sweeps the time-sorted records and returns one snapshot per
// distinct time. A subject is at risk at t when entry < t <= exit, so
// entries at t count from the next time on and exits at t still count at t.
func Compute(records []model.EventRecord) []model.Snapshot {
	snaps := make([]model.Snapshot, 0, len(records))
	var active float64
	for i := 0; i < len(records); {
		t := records[i].Time
		j := i
		var events, entered, exited float64
		for ; j < len(records) && records[j].Time == t; j++ {
			r := records[j]
			events += r.Events
			switch r.Kind {
			case model.RecordEntry:
				entered++
			case model.RecordExit:
				exited++
			}
		}
		snaps = append(snaps, model.Snapshot{Time: t, AtRisk: active, Events: events})
		active += entered - exited
		i = j
	}
	return snaps
}

// EventTimes keeps only the snapshots with at least one event.
func EventTimes(snaps []model.Snapshot) []model.Snapshot {
	out := make([]model.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.Events > 0 {
			out = append(out, s)
		}
	}
	return out
}
