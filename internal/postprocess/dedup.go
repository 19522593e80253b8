package postprocess

import (
	"sort"
	"time"

	"movement-tracker/pipeline/internal/model"
)

// DefaultDedupWindowDays is the gap under which a repeat of the same movement
// is treated as a republication.
const DefaultDedupWindowDays = 30

type dedupKey struct {
	name  string
	organ string
	typ   model.EventType
}

type lastKept struct {
	date    time.Time
	dateStr string
	refDate string
}

// Deduplicate drops republished acts in one pass over events sorted by
// (name, date). An event is removed when an earlier kept event under the same
// (name, organ, type) is cited by its reference date, or lies fewer than
// windowDays before it. Unidentified names and unparsable dates pass through.
// The input slice is not modified.
func Deduplicate(events []model.Event, windowDays int) ([]model.Event, int) {
	if windowDays <= 0 {
		windowDays = DefaultDedupWindowDays
	}
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Organ != b.Organ {
			return a.Organ < b.Organ
		}
		return a.SourceReference < b.SourceReference
	})

	out := make([]model.Event, 0, len(sorted))
	last := make(map[dedupKey]lastKept)
	removed := 0
	for _, e := range sorted {
		if !e.Identified() {
			out = append(out, e)
			continue
		}
		d, err := model.ParseDate(e.Date)
		if err != nil {
			out = append(out, e)
			continue
		}
		k := dedupKey{name: e.Name, organ: e.Organ, typ: e.Type}
		if prev, ok := last[k]; ok {
			if e.ReferenceDate != "" && (e.ReferenceDate == prev.refDate || e.ReferenceDate == prev.dateStr) {
				removed++
				continue
			}
			if model.DaysBetween(prev.date, d) < windowDays {
				removed++
				continue
			}
		}
		out = append(out, e)
		last[k] = lastKept{date: d, dateStr: e.Date, refDate: e.ReferenceDate}
	}
	return out, removed
}
