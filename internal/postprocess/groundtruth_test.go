package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
)

func TestApplyGroundTruthOverridesAndInserts(t *testing.T) {
	detected := ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01")
	detected.SourceReference = "dou-1"
	other := ev("BRUNO REIS", "TRT2", model.Exit, "2024-03-05")

	recs := []model.GroundTruthRecord{
		{Name: "Ana Lima", Date: "2024-03-01", Type: "evasão", Reason: "Posse em outro cargo", DestinationMatched: "Receita Federal", TRT: "5"},
		{Name: "Carla Dias", Date: "2024-04-02", Type: "ingresso", Orgao: "TRT-15", Role: "Analista"},
	}
	out, rep := ApplyGroundTruth([]model.Event{detected, other}, recs)

	assert.Equal(t, GroundTruthReport{Overridden: 1, Inserted: 1}, rep)
	require.Len(t, out, 3)
	assert.Equal(t, model.Event{
		Organ:           "TRT5",
		Name:            "ANA LIMA",
		Destination:     "Receita Federal",
		Date:            "2024-03-01",
		Month:           "2024-03",
		Type:            model.Exit,
		Confidence:      model.GroundTruth,
		SourceReference: GroundTruthSource,
		ReferenceDate:   "2024-03-01",
		Role:            model.Unidentified,
		Reason:          "Posse em outro cargo",
	}, out[0])
	assert.Equal(t, other, out[1])
	assert.Equal(t, "CARLA DIAS", out[2].Name)
	assert.Equal(t, model.Entry, out[2].Type)
	assert.Equal(t, "TRT15", out[2].Destination)
	assert.Equal(t, "Analista", out[2].Role)
}

func TestApplyGroundTruthReasonFallbackAndSkips(t *testing.T) {
	recs := []model.GroundTruthRecord{
		{Name: "Ana Lima", Date: "2024-03-01", Reason: "Aposentadoria"},
		{Name: "", Date: "2024-03-01"},
		{Name: "Bruno Reis", Date: "01/03/2024"},
		{Name: "Bruno Reis", Date: "2024-03-01", Type: "transferência"},
	}
	out, rep := ApplyGroundTruth(nil, recs)
	assert.Equal(t, GroundTruthReport{Inserted: 1, Skipped: 3}, rep)
	require.Len(t, out, 1)
	assert.Equal(t, "Aposentadoria", out[0].Destination)
	assert.Equal(t, model.Exit, out[0].Type)
}

func TestApplyGroundTruthReplacesEverySameKeyEvent(t *testing.T) {
	first := ev("JOSÉ CARLOS LIMA", "TRT5", model.Exit, "2024-03-01")
	first.Destination = "Ministério X"
	first.Confidence = model.ConfirmedExit
	second := ev("JOSÉ CARLOS LIMA", "TRT", model.Exit, "2024-03-01")
	second.Destination = "Ministério X"
	second.Confidence = model.ConfirmedExit
	other := ev("BRUNO REIS", "TRT2", model.Exit, "2024-03-01")

	out, rep := ApplyGroundTruth([]model.Event{first, other, second}, []model.GroundTruthRecord{
		{Name: "José Carlos Lima", Date: "2024-03-01", Reason: "aposentadoria", TRT: "5"},
	})

	assert.Equal(t, GroundTruthReport{Overridden: 1, Superseded: 1}, rep)
	require.Len(t, out, 2)
	assert.Equal(t, "JOSÉ CARLOS LIMA", out[0].Name)
	assert.Equal(t, model.GroundTruth, out[0].Confidence)
	assert.Equal(t, "aposentadoria", out[0].Destination)
	assert.Equal(t, other, out[1])
	for _, e := range out {
		assert.NotEqual(t, "Ministério X", e.Destination)
	}
}

func TestApplyGroundTruthIgnoresUnidentified(t *testing.T) {
	unnamed := ev(model.Unidentified, "TRT5", model.Exit, "2024-03-01")
	out, rep := ApplyGroundTruth([]model.Event{unnamed}, []model.GroundTruthRecord{
		{Name: "unidentified", Date: "2024-03-01"},
	})
	assert.Equal(t, GroundTruthReport{Skipped: 1}, rep)
	assert.Equal(t, []model.Event{unnamed}, out)
}

func TestGroundTruthEventNeedsFullName(t *testing.T) {
	_, err := GroundTruthEvent(model.GroundTruthRecord{Name: "maria", Date: "2024-03-01"})
	assert.Error(t, err)

	e, err := GroundTruthEvent(model.GroundTruthRecord{Name: " maria  souza ", Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "MARIA SOUZA", e.Name)
}

func TestLoadAndSaveGroundTruth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gt.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"name": "Ana Lima", "date": "2024-03-01", "type": "evasão", "reason": "posse", "trt": "5"},
  {"name": "Ana Lima", "date": "2024-03-20", "type": "ingresso", "orgao": "TRT2", "details": "verificado"}
]`), 0o644))

	recs, err := LoadGroundTruth(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "5", recs[0].TRT)
	assert.Equal(t, "verificado", recs[1].Details)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, SaveGroundTruth(out, recs))
	again, err := LoadGroundTruth(out)
	require.NoError(t, err)
	assert.Equal(t, recs, again)

	_, err = LoadGroundTruth(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMatchGroundTruth(t *testing.T) {
	recs := []model.GroundTruthRecord{
		{Name: "José Carlos", Date: "2024-03-01", Type: "evasão", Reason: "Posse em cargo inacumulável", TRT: "5"},
		{Name: "JOSE CARLOS", Date: "2024-04-01", Type: "ingresso", TRT: "2"},
		{Name: "Jose Carlos", Date: "2024-03-10", Type: "ingresso", TRT: "5"},
		{Name: "Ana Lima", Date: "2024-03-01", Type: "evasão", Reason: "Aposentadoria", TRT: "5"},
		{Name: "Ana Lima", Date: "2024-03-02", Type: "ingresso", TRT: "3"},
	}
	matches := MatchGroundTruth(recs, DefaultMatchWindowDays)

	assert.Len(t, matches, 1)
	assert.Equal(t, "internal move (TRT5)", recs[0].DestinationMatched)
	assert.Equal(t, "destination identified: internal move (TRT5)", recs[0].Details)
	assert.Empty(t, recs[3].DestinationMatched)
}

func TestApply(t *testing.T) {
	m := metrics.New()
	events := []model.Event{
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-01"),
		ev("ANA LIMA", "TRT5", model.Exit, "2024-03-05"),
		ev("ANA LIMA", "TRT2", model.Entry, "2024-03-20"),
		ev("BRUNO REIS", "TRT5", model.Exit, "2024-03-01"),
	}
	var looked int
	out, rep := Apply(context.Background(), events, Options{
		GroundTruth: []model.GroundTruthRecord{{Name: "Carla Dias", Date: "2024-05-01", Reason: "Falecimento"}},
		Lookup: func(_ context.Context, evs []model.Event) {
			looked = len(evs)
		},
		Metrics: m,
	})

	assert.Equal(t, Report{
		Input:        4,
		DedupRemoved: 1,
		CrossMatched: 1,
		GroundTruth:  GroundTruthReport{Inserted: 1},
		Output:       4,
	}, rep)
	assert.Equal(t, 3, looked)
	assert.Len(t, out, 4)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DedupRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CrossMatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GroundTruth.WithLabelValues("inserted")))
}
