// Package postprocess reconciles the raw event list: republished acts are
// collapsed, placeholder destinations are inferred from matching entries and
// verified reference records take precedence over everything detected.
package postprocess

import (
	"context"

	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
)

// Options configures Apply. Zero windows fall back to the defaults.
type Options struct {
	DedupWindowDays int
	MatchWindowDays int
	GroundTruth     []model.GroundTruthRecord

	// Lookup, when set, runs between cross-matching and ground truth and may
	// update events in place.
	Lookup func(ctx context.Context, events []model.Event)

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Report summarizes one Apply call.
type Report struct {
	Input        int               `json:"input"`
	DedupRemoved int               `json:"dedup_removed"`
	CrossMatched int               `json:"cross_matched"`
	GroundTruth  GroundTruthReport `json:"ground_truth"`
	Output       int               `json:"output"`
}

// Apply runs dedup, cross-matching, the optional lookup stage and the
// ground-truth merge, in that order.
func Apply(ctx context.Context, events []model.Event, opts Options) ([]model.Event, Report) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rep := Report{Input: len(events)}

	out, removed := Deduplicate(events, opts.DedupWindowDays)
	rep.DedupRemoved = removed
	opts.Metrics.ObserveDedup(removed)

	rep.CrossMatched = CrossMatch(out, opts.MatchWindowDays)
	opts.Metrics.ObserveCrossMatch(rep.CrossMatched)

	if opts.Lookup != nil {
		opts.Lookup(ctx, out)
	}

	if len(opts.GroundTruth) > 0 {
		out, rep.GroundTruth = ApplyGroundTruth(out, opts.GroundTruth)
		opts.Metrics.ObserveGroundTruth("overridden", rep.GroundTruth.Overridden)
		opts.Metrics.ObserveGroundTruth("inserted", rep.GroundTruth.Inserted)
		opts.Metrics.ObserveGroundTruth("skipped", rep.GroundTruth.Skipped)
		opts.Metrics.ObserveGroundTruth("superseded", rep.GroundTruth.Superseded)
	}
	rep.Output = len(out)

	log.Info("postprocess done",
		zap.Int("input", rep.Input),
		zap.Int("dedup_removed", rep.DedupRemoved),
		zap.Int("cross_matched", rep.CrossMatched),
		zap.Int("gt_overridden", rep.GroundTruth.Overridden),
		zap.Int("gt_inserted", rep.GroundTruth.Inserted),
		zap.Int("gt_superseded", rep.GroundTruth.Superseded),
		zap.Int("output", rep.Output),
	)
	return out, rep
}
