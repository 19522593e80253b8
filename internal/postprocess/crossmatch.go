package postprocess

import (
	"sort"
	"time"

	"movement-tracker/pipeline/internal/model"
)

// DefaultMatchWindowDays bounds the distance between an exit and the entry
// that explains it.
const DefaultMatchWindowDays = 45

// MoveLabel describes a destination inferred from an entry at organ to,
// for a person who left organ from.
func MoveLabel(from, to string) string {
	if from == to {
		return "internal move (" + to + ")"
	}
	return "external move (" + to + ")"
}

type entryAt struct {
	date  time.Time
	organ string
}

// CrossMatch fills the destination of exits that only carry a placeholder
// with the organ of the same person's nearest entry within windowDays. Ties
// go to the earlier entry. Matched exits get the "_matched" confidence
// suffix. events is updated in place; the number of matches is returned.
func CrossMatch(events []model.Event, windowDays int) int {
	if windowDays <= 0 {
		windowDays = DefaultMatchWindowDays
	}

	entries := make(map[string][]entryAt)
	for _, e := range events {
		if e.Type != model.Entry || !e.Identified() {
			continue
		}
		d, err := model.ParseDate(e.Date)
		if err != nil {
			continue
		}
		entries[e.Name] = append(entries[e.Name], entryAt{date: d, organ: e.Organ})
	}
	for _, list := range entries {
		sortEntries(list)
	}

	matched := 0
	for i := range events {
		e := &events[i]
		if e.Type != model.Exit || !e.Identified() || !e.HasGenericDestination() {
			continue
		}
		d, err := model.ParseDate(e.Date)
		if err != nil {
			continue
		}
		best, ok := nearest(entries[e.Name], d, windowDays)
		if !ok {
			continue
		}
		e.Destination = MoveLabel(e.Organ, best.organ)
		e.Confidence += model.MatchedSuffix
		matched++
	}
	return matched
}

func sortEntries(list []entryAt) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].date.Before(list[j].date) })
}

// nearest returns the date-sorted candidate closest to d within window days.
func nearest(list []entryAt, d time.Time, window int) (entryAt, bool) {
	var best entryAt
	bestDiff := -1
	for _, c := range list {
		diff := abs(model.DaysBetween(d, c.date))
		if diff > window {
			continue
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best, bestDiff >= 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
