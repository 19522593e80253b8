package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by every Event date field.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string is not a YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("invalid calendar date")

type EventType string

const (
	Exit  EventType = "exit"
	Entry EventType = "entry"
)

// ParseEventType accepts the canonical values plus the Portuguese labels used
// in curated reference files.
func ParseEventType(s string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exit", "evasão", "evasao", "saída", "saida":
		return Exit, nil
	case "entry", "ingresso", "entrada":
		return Entry, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// Sentinels.
const (
	Unidentified = "unidentified"
	Unknown      = "unknown"
)

// Destination labels for exits whose target is a reason, not an institution.
const (
	DestRetirement              = "retirement"
	DestDeath                   = "death"
	DestIncompatibleOther       = "other institution, cause: incompatible office"
	DestIncompatibleUnspecified = "unspecified, cause: incompatible office"
)

// Confidence tags.
const (
	ConfirmedExit       = "confirmed_exit"
	ConfirmedVacancy    = "confirmed_vacancy"
	ConfirmedRetirement = "confirmed_retirement"
	ConfirmedDeath      = "confirmed_death"
	ConfirmedEntry      = "confirmed_entry"
	GroundTruth         = "ground_truth"

	MatchedSuffix  = "_matched"
	SearchedSuffix = "_searched"
)

// Event is one personnel movement extracted from a single act.
type Event struct {
	Organ           string    `json:"organ"`
	Name            string    `json:"name"`
	Destination     string    `json:"destination"`
	Date            string    `json:"date"`
	Month           string    `json:"month"`
	Type            EventType `json:"type"`
	Confidence      string    `json:"confidence"`
	SourceReference string    `json:"source_reference"`
	ReferenceDate   string    `json:"reference_date,omitempty"`
	Role            string    `json:"role,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

// Identified reports whether the event carries a real subject name.
func (e Event) Identified() bool {
	return e.Name != "" && e.Name != Unidentified
}

// HasGenericDestination reports whether the destination is a placeholder
// that later stages may replace with an inferred institution.
func (e Event) HasGenericDestination() bool {
	switch e.Destination {
	case "", Unknown, DestIncompatibleOther, DestIncompatibleUnspecified:
		return true
	}
	return false
}

// Document is a unit of raw gazette text handed to the detector.
type Document struct {
	ID     string // stable id within its source
	Source string // source name, e.g. "files"
	Ref    string // source_reference stamped on events
	Date   string // publication date, YYYY-MM-DD
	Organ  string // optional organ hint from metadata
	Text   string
}

// GroundTruthRecord is a manually verified movement.
type GroundTruthRecord struct {
	Name               string `json:"name" yaml:"name"`
	Date               string `json:"date" yaml:"date"`
	Type               string `json:"type" yaml:"type"`
	Reason             string `json:"reason,omitempty" yaml:"reason"`
	DestinationMatched string `json:"destination_matched,omitempty" yaml:"destination_matched"`
	Orgao              string `json:"orgao,omitempty" yaml:"orgao"`
	TRT                string `json:"trt,omitempty" yaml:"trt"`
	Role               string `json:"role,omitempty" yaml:"role"`
	Details            string `json:"details,omitempty" yaml:"details"`
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// MonthOf returns the YYYY-MM aggregation key of a date string.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// DaysBetween returns b-a in whole days.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// NormalizeName uppercases and collapses whitespace.
func NormalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
