package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/postprocess"
)

var matchOutput string

var matchCmd = &cobra.Command{
	Use:   "match-ground-truth",
	Short: "Fill destinations in the ground-truth file from matching entries",
	Long: `Pair each ground-truth exit caused by a new appointment with the nearest
entry record of the same person within the match window, and record the
entry's organ as the exit's destination.

Examples:
  # Update the configured file in place
  movement-tracker match-ground-truth

  # Write the result elsewhere
  movement-tracker match-ground-truth --output /tmp/gt.json`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchOutput, "output", "", "write updated records here (default: overwrite the input)")
}

func runMatch(_ *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	recs, err := postprocess.LoadGroundTruth(cfg.GroundTruth)
	if err != nil {
		return err
	}
	matched := postprocess.MatchGroundTruth(recs, cfg.Post.MatchWindowDays)
	for _, name := range matched {
		logger.Info("destination matched", zap.String("name", name))
	}

	out := matchOutput
	if out == "" {
		out = cfg.GroundTruth
	}
	if err := postprocess.SaveGroundTruth(out, recs); err != nil {
		return err
	}
	logger.Info("ground truth updated", zap.Int("records", len(recs)), zap.Int("matched", len(matched)), zap.String("path", out))
	return nil
}
