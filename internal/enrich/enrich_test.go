package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/source"
)

type fakeSearcher struct {
	queries []source.Query
	respond func(q source.Query) ([]source.Row, error)
}

func (f *fakeSearcher) Search(_ context.Context, q source.Query) ([]source.Row, error) {
	f.queries = append(f.queries, q)
	return f.respond(q)
}

func isReasonQuery(q source.Query) bool {
	return len(q.Any) > 0 && q.Any[0] == "vago"
}

func exit(name, date, dest string) model.Event {
	return model.Event{
		Organ: "TRT5", Name: name, Destination: dest, Date: date, Month: model.MonthOf(date),
		Type: model.Exit, Confidence: model.ConfirmedVacancy, Role: model.Unidentified,
	}
}

func TestClassifyReason(t *testing.T) {
	cases := map[string]string{
		"declarar vago em virtude de posse em outro cargo inacumulável": ReasonIncompatibleOffice,
		"Exoneração, a pedido, de ANA":                                   ReasonResignationRequest,
		"EXONERAÇÃO de Bruno":                                            ReasonResignation,
		"concede aposentadoria voluntária":                               ReasonRetirement,
		"vacância em decorrência de falecimento":                         ReasonDeath,
		"declarar vago o cargo":                                          ReasonVacancy,
		"aplicar a pena de demissão":                                     ReasonDismissal,
		"remoção de ofício":                                              ReasonOther,
		"   ":                                                            "",
	}
	for text, want := range cases {
		assert.Equal(t, want, ClassifyReason(text), text)
	}
}

func TestEnrichFillsReasonAndDestination(t *testing.T) {
	f := &fakeSearcher{respond: func(q source.Query) ([]source.Row, error) {
		if isReasonQuery(q) {
			return []source.Row{{Date: "2024-03-10", Text: "Declarar vago em virtude de posse em outro cargo inacumulável"}}, nil
		}
		return []source.Row{
			{Date: "2024-02-20", Organ: "Ministério da Fazenda", Text: "nomear para o cargo de Auditor"},
			{Date: "2024-03-01", Organ: "Tribunal Regional do Trabalho da 2ª Região", Text: "nomear ANA LIMA para exercer o cargo de Analista Judiciário, Área Apoio"},
		}, nil
	}}
	m := metrics.New()
	e := New(f, Options{Delay: time.Millisecond, Metrics: m})

	events := []model.Event{
		exit("ANA LIMA", "2024-03-10", model.DestIncompatibleUnspecified),
		exit("BRUNO REIS", "2024-03-10", "Receita Federal"),
		exit(model.Unidentified, "2024-03-10", model.Unknown),
		{Name: "CARLA DIAS", Date: "2024-03-10", Type: model.Entry, Destination: "TRT5"},
	}
	rep := e.Enrich(context.Background(), events)

	assert.Equal(t, Report{Candidates: 1, Reasons: 1, Destinations: 1}, rep)
	require.Len(t, f.queries, 2)

	reason := f.queries[0]
	assert.Equal(t, "2024-03-07", reason.Start)
	assert.Equal(t, "2024-03-13", reason.End)
	assert.Equal(t, []string{"ana lima"}, reason.All)
	assert.Equal(t, 1, reason.Limit)

	dest := f.queries[1]
	assert.Equal(t, "2024-02-09", dest.Start)
	assert.Equal(t, "2024-03-10", dest.End)
	assert.Equal(t, []string{"nome"}, dest.Any)

	got := events[0]
	assert.Equal(t, ReasonIncompatibleOffice, got.Reason)
	assert.Equal(t, "TRT2", got.Destination, "latest row wins")
	assert.Equal(t, "Analista Judiciário", got.Role)
	assert.Equal(t, model.ConfirmedVacancy+model.SearchedSuffix, got.Confidence)

	assert.Equal(t, "Receita Federal", events[1].Destination)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("destination", "hit")))
}

func TestEnrichMissesAndFailures(t *testing.T) {
	f := &fakeSearcher{respond: func(q source.Query) ([]source.Row, error) {
		if isReasonQuery(q) {
			return nil, nil
		}
		if strings.Contains(q.All[0], "bruno") {
			return nil, errors.New("archive down")
		}
		return []source.Row{{Date: "2024-03-01", Organ: "  ", Text: "nomear"}}, nil
	}}
	m := metrics.New()
	e := New(f, Options{Delay: time.Millisecond, Metrics: m})

	events := []model.Event{
		exit("ANA LIMA", "2024-03-10", model.Unknown),
		exit("BRUNO REIS", "2024-03-12", model.DestIncompatibleOther),
	}
	events[1].Reason = "already known"
	rep := e.Enrich(context.Background(), events)

	assert.Equal(t, Report{Candidates: 2, Failures: 1}, rep)
	assert.Equal(t, model.Unidentified, events[0].Reason)
	assert.Equal(t, model.Unknown, events[0].Destination, "blank organ is not a destination")
	assert.Equal(t, "already known", events[1].Reason)
	assert.Equal(t, model.DestIncompatibleOther, events[1].Destination)
	assert.Equal(t, model.ConfirmedVacancy, events[1].Confidence)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("destination", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("reason", "miss")))
}

func TestEnrichStopsOnCancel(t *testing.T) {
	f := &fakeSearcher{respond: func(source.Query) ([]source.Row, error) { return nil, nil }}
	e := New(f, Options{Delay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := e.Enrich(ctx, []model.Event{exit("ANA LIMA", "2024-03-10", model.Unknown)})

	assert.Zero(t, rep.Candidates)
	assert.Empty(t, f.queries)
}
