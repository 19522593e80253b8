package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"movement-tracker/pipeline/internal/model"
)

func TestCrossMatchExternalAndInternal(t *testing.T) {
	events := []model.Event{
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
		ev("ANA LIMA", "TRT2", model.Entry, "2024-03-20"),
	}
	assert.Equal(t, 1, CrossMatch(events, DefaultMatchWindowDays))
	assert.Equal(t, "external move (TRT2)", events[0].Destination)
	assert.Equal(t, model.ConfirmedExit+model.MatchedSuffix, events[0].Confidence)

	events = []model.Event{
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
		ev("ANA LIMA", "TRT5", model.Entry, "2024-03-20"),
	}
	CrossMatch(events, DefaultMatchWindowDays)
	assert.Equal(t, "internal move (TRT5)", events[0].Destination)
}

func TestCrossMatchNearestWins(t *testing.T) {
	events := []model.Event{
		ev("ANA LIMA", "TRT2", model.Entry, "2024-04-10"),
		ev("ANA LIMA", "TRT3", model.Entry, "2024-02-25"),
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
	}
	CrossMatch(events, DefaultMatchWindowDays)
	assert.Equal(t, "external move (TRT3)", events[2].Destination)
}

func TestCrossMatchTieGoesToEarlierEntry(t *testing.T) {
	events := []model.Event{
		ev("ANA LIMA", "TRT2", model.Entry, "2024-03-11"),
		ev("ANA LIMA", "TRT3", model.Entry, "2024-02-20"),
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
	}
	CrossMatch(events, DefaultMatchWindowDays)
	assert.Equal(t, "external move (TRT3)", events[2].Destination)
}

func TestCrossMatchWindow(t *testing.T) {
	events := []model.Event{
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
		ev("ANA LIMA", "TRT2", model.Entry, "2024-04-20"),
	}
	assert.Equal(t, 0, CrossMatch(events, DefaultMatchWindowDays))
	assert.Equal(t, model.Unknown, events[0].Destination)
}

func TestCrossMatchLeavesResolvedExits(t *testing.T) {
	events := []model.Event{
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-02"),
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-03"),
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-04"),
		ev("ANA LIMA", "TRT2", model.Entry, "2024-03-10"),
	}
	events[0].Destination = model.DestRetirement
	events[1].Destination = model.DestDeath
	events[2].Destination = "Ministério da Saúde"
	events[3].Destination = model.DestIncompatibleOther

	assert.Equal(t, 1, CrossMatch(events, 45))
	assert.Equal(t, model.DestRetirement, events[0].Destination)
	assert.Equal(t, model.DestDeath, events[1].Destination)
	assert.Equal(t, "Ministério da Saúde", events[2].Destination)
	assert.Equal(t, "external move (TRT2)", events[3].Destination)
}

func TestCrossMatchRequiresExactName(t *testing.T) {
	events := []model.Event{
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
		ev("ANA LIMA SOUZA", "TRT2", model.Entry, "2024-03-10"),
		ev(model.Unidentified, "TRT5", model.Exit, "2024-03-01"),
		ev(model.Unidentified, "TRT2", model.Entry, "2024-03-10"),
	}
	assert.Equal(t, 0, CrossMatch(events, 45))
}
