package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/showdown"
	"replayscraper/pkg/store"
	"replayscraper/pkg/ui"
)

var (
	// Export command flags
	exportFormat string
	exportCount  int
	exportDir    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a random sample of one format to CSV",
	Long: `Write a random sample of stored replays of one format to a CSV file with
the columns id, format, rating and log.

The file is named <format id>-<count>.csv, e.g. gen9ou-1000.csv.`,
	Example: `  replayscraper export --format "[Gen 9] OU" --n 1000
  replayscraper export --format "[Gen 9] Random Battle" --n 500 --out ./datasets`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&dbPath, "db", "", "database path (default: logs.db)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "format to export, e.g. \"[Gen 9] OU\"")
	exportCmd.Flags().IntVar(&exportCount, "n", 1000, "number of replays to sample")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "output directory")
	_ = exportCmd.MarkFlagRequired("format")
}

// exportFileName names the CSV after the compact format id
func exportFileName(format string, n int) string {
	id, ok := showdown.CompactFormat(format)
	if !ok {
		id = showdown.ToID(format)
	}
	return fmt.Sprintf("%s-%d.csv", id, n)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportCount <= 0 {
		return fmt.Errorf("--n must be positive")
	}

	cfg, err := loadConfig(map[string]interface{}{"db": dbPath})
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		ui.PrintError("Failed to open database", err.Error())
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	replays, err := st.Sample(ctx, exportFormat, exportCount)
	if err != nil {
		return fmt.Errorf("sampling replays: %w", err)
	}
	if len(replays) < exportCount {
		ui.PrintWarning("Fewer replays stored than requested", fmt.Sprintf("%d of %d", len(replays), exportCount))
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(exportDir, exportFileName(exportFormat, exportCount))
	if err := writeExport(path, replays); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"format":  exportFormat,
		"replays": len(replays),
		"path":    path,
	}).Info("Export finished")
	ui.PrintSuccess("Exported " + path)
	return nil
}

// writeExport writes replays to path as CSV and reports a failed close
func writeExport(path string, replays []store.Replay) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := store.WriteCSV(file, replays); err != nil {
		file.Close()
		return fmt.Errorf("writing CSV: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}
