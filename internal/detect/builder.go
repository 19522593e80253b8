package detect

import (
	"fmt"
	"strings"

	"movement-tracker/pipeline/internal/model"
)

// Act is a classified block with its resolved parts.
type Act struct {
	Type          model.EventType
	Organ         string
	Subject       Subject
	Resolution    Resolution
	Date          string
	ReferenceDate string
	Role          string
	Source        string
}

// Build assembles an Event from an act. It fails only when the date is not
// a calendar date.
func Build(a Act) (model.Event, error) {
	if _, err := model.ParseDate(a.Date); err != nil {
		return model.Event{}, fmt.Errorf("build event: %w", err)
	}
	name := model.NormalizeName(a.Subject.Name)
	if len(strings.Fields(name)) < 2 {
		name = model.Unidentified
	}
	dest := a.Resolution.Destination
	if dest == "" {
		dest = model.Unknown
	}
	ref := a.ReferenceDate
	if _, err := model.ParseDate(ref); err != nil {
		ref = ""
	}
	role := a.Role
	if role == "" {
		role = model.Unidentified
	}
	return model.Event{
		Organ:           model.NormalizeOrgan(a.Organ),
		Name:            name,
		Destination:     dest,
		Date:            a.Date,
		Month:           model.MonthOf(a.Date),
		Type:            a.Type,
		Confidence:      a.Resolution.Confidence,
		SourceReference: a.Source,
		ReferenceDate:   ref,
		Role:            role,
	}, nil
}
