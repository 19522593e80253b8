package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/pipeline"
)

var interval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the detection pipeline",
	Long: `Fetch documents from every configured source, detect movements,
reconcile them and push the result to the configured sinks.

Examples:
  # Single batch
  movement-tracker run --config configs/config.yml

  # Repeat every six hours until interrupted
  movement-tracker run --interval 6h`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().DurationVar(&interval, "interval", 0, "repeat the batch at this interval (0 runs once)")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	p, err := pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithMetrics(m))
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.Metrics.Listen != "" && interval > 0 {
		srv := metrics.NewServer(cfg.Metrics.Listen, m)
		go func() {
			logger.Info("serving /metrics", zap.String("addr", cfg.Metrics.Listen))
			if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("movement-tracker started", zap.Int("sources", len(cfg.Sources)), zap.Duration("interval", interval))
	if err := runOnce(ctx, p, logger); err != nil || interval <= 0 {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping", zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
			if err := runOnce(ctx, p, logger); err != nil {
				return err
			}
		}
	}
}

// runOnce treats cancellation as a clean stop.
func runOnce(ctx context.Context, p *pipeline.Pipeline, logger *zap.Logger) error {
	res, err := p.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	for name, serr := range res.SinkErrors {
		logger.Warn("sink not updated", zap.String("sink", name), zap.Error(serr))
	}
	return nil
}
