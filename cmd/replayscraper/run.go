package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/scraper"
	"replayscraper/pkg/store"
	"replayscraper/pkg/ui"
)

var (
	// Run command flags
	dbPath      string
	maxSize     int64
	harvestMode string
	waitBetween time.Duration
	minDelay    time.Duration
	withMetrics bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest replays until the storage budget is reached",
	Long: `Harvest replays into the database.

Modes:
  schedule  run every discovery source and the resolver on their own
            intervals (default)
  recent    fetch the most recent replays, resolve them, wait, repeat
  format    search every tracked format once, resolve, exit

The harvest stops when the database file grows past --max-size or on
SIGINT/SIGTERM. References still queued at that point are saved and picked
up by the next run.`,
	Example: `  # Harvest with the default schedule
  replayscraper run

  # Write to a different database with a 2 GB budget
  replayscraper run --db ./data/logs.db --max-size 2000000000

  # Poll recent replays every five minutes
  replayscraper run --mode recent --wait 5m

  # Expose Prometheus metrics
  replayscraper run --metrics`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&dbPath, "db", "", "database path (default: logs.db)")
	runCmd.Flags().Int64Var(&maxSize, "max-size", 0, "storage budget in bytes (default: 10 GB)")
	runCmd.Flags().StringVar(&harvestMode, "mode", "", "harvest mode: schedule, recent or format")
	runCmd.Flags().DurationVar(&waitBetween, "wait", 0, "pause between passes in recent mode")
	runCmd.Flags().DurationVar(&minDelay, "min-delay", 0, "minimum delay between log fetches")
	runCmd.Flags().BoolVar(&withMetrics, "metrics", false, "serve Prometheus metrics")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"db":        dbPath,
		"max-size":  maxSize,
		"mode":      harvestMode,
		"wait":      waitBetween,
		"min-delay": minDelay,
	}
	if cmd.Flags().Changed("metrics") {
		flags["metrics"] = withMetrics
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	if !quiet {
		ui.PrintInfo("Mode", cfg.Harvest.Mode)
		ui.PrintInfo("Database", cfg.Storage.Path)
		ui.PrintInfo("Budget", store.HumanSize(cfg.Storage.MaxSize))
		if cfg.Metrics.Enabled {
			ui.PrintInfo("Metrics", cfg.Metrics.Listen)
		}
	}
	logger.WithField("version", version).Info("replayscraper starting")

	h, err := scraper.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize harvester", err.Error())
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		ui.PrintHighlight("[HARVEST STARTED]")
	}
	if err := h.Run(ctx); err != nil {
		logger.WithError(err).Error("Harvest failed")
		ui.PrintError("HARVEST FAILED", err.Error())
		return err
	}

	if !quiet {
		h.Tracker().PrintSummary(os.Stdout)
		ui.PrintSuccess(fmt.Sprintf("[HARVEST FINISHED] queued references: %d", h.Queue().Len()))
	}
	return nil
}
