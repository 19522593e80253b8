// Package main implements the movement-tracker CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/logging"
)

var (
	// cfgPath is the YAML config shared by every command
	cfgPath string
	// Version is set at build time via -ldflags "-X main.Version=..."
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "movement-tracker",
	Short: "Track IT staff movements in labor court gazettes",
	Long: `movement-tracker reads gazette publications, detects appointments and
departures of IT staff at the regional labor courts, reconciles them and
publishes the event list with monthly and per-organ summaries.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yml", "path to YAML config")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(enrichCmd)
}

// setup loads the config and builds the logger every command starts from.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger.With(zap.String("version", Version)), nil
}
