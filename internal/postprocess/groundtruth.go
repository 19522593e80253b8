package postprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"movement-tracker/pipeline/internal/model"
)

// GroundTruthSource is the source reference stamped on reference-derived events.
const GroundTruthSource = "ground_truth_audit"

// GroundTruthReport counts what ApplyGroundTruth did with each record.
type GroundTruthReport struct {
	Overridden int `json:"overridden"`
	Inserted   int `json:"inserted"`
	Skipped    int `json:"skipped"`
	// detected events dropped because another event with the same key was
	// overridden
	Superseded int `json:"superseded"`
}

// LoadGroundTruth reads a list of verified records. JSON and YAML are both
// accepted.
func LoadGroundTruth(path string) ([]model.GroundTruthRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}
	var recs []model.GroundTruthRecord
	if err := yaml.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}
	return recs, nil
}

// SaveGroundTruth writes records as indented JSON.
func SaveGroundTruth(path string, recs []model.GroundTruthRecord) error {
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write ground truth: %w", err)
	}
	return os.Rename(tmp, path)
}

// recordOrgan is the explicit organ, else the formatted region code.
func recordOrgan(r model.GroundTruthRecord) string {
	if o := strings.TrimSpace(r.Orgao); o != "" {
		return model.NormalizeOrgan(o)
	}
	return model.NormalizeOrgan(r.TRT)
}

// GroundTruthEvent converts a reference record into an event stamped with the
// ground_truth confidence. Records without a full name (two tokens or
// more) or a calendar date are rejected. A missing type means exit.
func GroundTruthEvent(r model.GroundTruthRecord) (model.Event, error) {
	name := model.NormalizeName(r.Name)
	if name == "" {
		return model.Event{}, fmt.Errorf("ground truth record without name")
	}
	if len(strings.Fields(name)) < 2 {
		return model.Event{}, fmt.Errorf("ground truth %q: need first and last name", name)
	}
	date := strings.TrimSpace(r.Date)
	if _, err := model.ParseDate(date); err != nil {
		return model.Event{}, fmt.Errorf("ground truth %s: %w", name, err)
	}
	typ := model.Exit
	if strings.TrimSpace(r.Type) != "" {
		t, err := model.ParseEventType(r.Type)
		if err != nil {
			return model.Event{}, fmt.Errorf("ground truth %s: %w", name, err)
		}
		typ = t
	}

	organ := recordOrgan(r)
	var dest string
	switch {
	case typ == model.Entry:
		dest = organ
	case strings.TrimSpace(r.DestinationMatched) != "":
		dest = strings.TrimSpace(r.DestinationMatched)
	case strings.TrimSpace(r.Reason) != "":
		dest = strings.TrimSpace(r.Reason)
	}
	if dest == "" {
		dest = model.Unknown
	}
	role := strings.TrimSpace(r.Role)
	if role == "" {
		role = model.Unidentified
	}
	return model.Event{
		Organ:           organ,
		Name:            name,
		Destination:     dest,
		Date:            date,
		Month:           model.MonthOf(date),
		Type:            typ,
		Confidence:      model.GroundTruth,
		SourceReference: GroundTruthSource,
		ReferenceDate:   date,
		Role:            role,
		Reason:          strings.TrimSpace(r.Reason),
	}, nil
}

type truthKey struct{ name, date string }

// ApplyGroundTruth merges reference records into events. A record whose
// (uppercase name, date) matches events replaces the first of them and
// drops the rest; other records are appended. The input slice is not
// modified.
func ApplyGroundTruth(events []model.Event, recs []model.GroundTruthRecord) ([]model.Event, GroundTruthReport) {
	out := make([]model.Event, len(events), len(events)+len(recs))
	copy(out, events)

	index := make(map[truthKey][]int, len(out))
	for i, e := range out {
		if !e.Identified() {
			continue
		}
		k := truthKey{name: model.NormalizeName(e.Name), date: e.Date}
		index[k] = append(index[k], i)
	}

	var rep GroundTruthReport
	drop := make(map[int]bool)
	for _, r := range recs {
		ev, err := GroundTruthEvent(r)
		if err != nil {
			rep.Skipped++
			continue
		}
		k := truthKey{name: ev.Name, date: ev.Date}
		if idx, ok := index[k]; ok {
			out[idx[0]] = ev
			rep.Overridden++
			for _, j := range idx[1:] {
				drop[j] = true
				rep.Superseded++
			}
			index[k] = idx[:1]
			continue
		}
		index[k] = []int{len(out)}
		out = append(out, ev)
		rep.Inserted++
	}
	if len(drop) == 0 {
		return out, rep
	}

	kept := out[:0]
	for i, e := range out {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	return kept, rep
}

// MatchGroundTruth pairs exit records that describe taking office elsewhere
// ("posse", "exoneração") with an entry record of the same person within
// windowDays, nearest first, and records the move in DestinationMatched.
// Names are compared accent-insensitively. recs is updated in place; the
// descriptions of the matches are returned.
func MatchGroundTruth(recs []model.GroundTruthRecord, windowDays int) []string {
	if windowDays <= 0 {
		windowDays = DefaultMatchWindowDays
	}

	entries := make(map[string][]entryAt)
	for _, r := range recs {
		if t, err := model.ParseEventType(r.Type); err != nil || t != model.Entry {
			continue
		}
		d, err := model.ParseDate(r.Date)
		if err != nil {
			continue
		}
		k := model.FoldName(r.Name)
		entries[k] = append(entries[k], entryAt{date: d, organ: recordOrgan(r)})
	}
	for _, list := range entries {
		sortEntries(list)
	}

	var matches []string
	for i := range recs {
		r := &recs[i]
		if t, err := model.ParseEventType(r.Type); err != nil || t != model.Exit {
			continue
		}
		reason := strings.ToLower(r.Reason)
		if !strings.Contains(reason, "posse") && !strings.Contains(reason, "exoneração") {
			continue
		}
		d, err := model.ParseDate(r.Date)
		if err != nil {
			continue
		}
		best, ok := nearest(entries[model.FoldName(r.Name)], d, windowDays)
		if !ok {
			continue
		}
		label := MoveLabel(recordOrgan(*r), best.organ)
		r.DestinationMatched = label
		note := "destination identified: " + label
		if r.Details == "" {
			r.Details = note
		} else {
			r.Details += " | " + note
		}
		matches = append(matches, fmt.Sprintf("%s (%s) -> %s on %s", model.NormalizeName(r.Name), r.Date, label, best.date.Format(time.DateOnly)))
	}
	return matches
}
