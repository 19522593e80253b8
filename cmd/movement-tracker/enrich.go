package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/pipeline"
	"movement-tracker/pipeline/internal/sink"
)

var enrichInput string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Look up destinations for published exits in the gazette archive",
	Long: `Read a published event list, search the gazette archive for the reason
and the new post of every exit whose destination is still unknown, and
rewrite the outputs.

Examples:
  movement-tracker enrich --config configs/config.yml`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "event list to enrich (default: events.json in the output dir)")
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	in := enrichInput
	if in == "" {
		in = filepath.Join(cfg.Output.Dir, sink.EventsFile)
	}
	b, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	var events []model.Event
	if err := json.Unmarshal(b, &events); err != nil {
		return fmt.Errorf("parse events %s: %w", in, err)
	}

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	defer p.Close()

	started := time.Now()
	rep, err := p.Enrich(cmd.Context(), events)
	if err != nil {
		return err
	}

	out := sink.NewJSON(cfg.Output)
	out.SetRun(sink.RunInfo{ID: uuid.NewString(), StartedAt: started, FinishedAt: time.Now()})
	if err := out.Push(cmd.Context(), events); err != nil {
		return err
	}
	logger.Info("enrichment written", zap.Int("destinations", rep.Destinations), zap.String("dir", cfg.Output.Dir))
	return nil
}
