package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"movement-tracker/pipeline/internal/aggregate"
	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/model"
)

// Output file names.
const (
	EventsFile          = "events.json"
	SeriesFile          = "series_mensal.json"
	TopOrgansFile       = "top_orgaos.json"
	TopDestinationsFile = "top_destinos.json"
	RunFile             = "run.json"
)

// JSONSink writes the event list and its aggregates into a directory.
type JSONSink struct {
	dir  string
	topN int
	run  RunInfo
}

func NewJSON(cfg config.OutputConfig) *JSONSink {
	return &JSONSink{dir: cfg.Dir, topN: cfg.TopN}
}

func (j *JSONSink) Name() string { return "json" }

func (j *JSONSink) SetRun(info RunInfo) { j.run = info }

func (j *JSONSink) Push(_ context.Context, events []model.Event) error {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	a := aggregate.Build(events, j.topN)
	if a.Series == nil {
		a.Series = []aggregate.MonthCount{}
	}
	if a.TopOrgans == nil {
		a.TopOrgans = []aggregate.OrganSummary{}
	}
	if a.TopDestinations == nil {
		a.TopDestinations = []aggregate.DestinationCount{}
	}

	files := []struct {
		name string
		v    any
	}{
		{EventsFile, events},
		{SeriesFile, a.Series},
		{TopOrgansFile, a.TopOrgans},
		{TopDestinationsFile, a.TopDestinations},
		{RunFile, j.run},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(j.dir, f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
