package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"replayscraper/pkg/store"
	"replayscraper/pkg/ui"
)

var (
	// Stats command flags
	statsFormats  []string
	allFormats    bool
	ratingStart   int
	ratingEnd     int
	ratingStep    int
	ratingsSplit  bool
	skipHistogram bool
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the database contains",
	Long: `Show replay counts from the database: totals, counts per format and a
rating histogram.

Formats default to the tracked formats of the configuration.`,
	Example: `  # Summary of the tracked formats
  replayscraper stats

  # Every stored format, rating histogram split by format
  replayscraper stats --all --by-format

  # Finer histogram of one format
  replayscraper stats --format "[Gen 9] OU" --rating-step 50`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&dbPath, "db", "", "database path (default: logs.db)")
	statsCmd.Flags().StringArrayVarP(&statsFormats, "format", "f", nil, "format to report, repeatable")
	statsCmd.Flags().BoolVar(&allFormats, "all", false, "count every stored format")
	statsCmd.Flags().IntVar(&ratingStart, "rating-start", 1000, "lowest rating of the histogram")
	statsCmd.Flags().IntVar(&ratingEnd, "rating-end", 2000, "highest rating of the histogram")
	statsCmd.Flags().IntVar(&ratingStep, "rating-step", 100, "width of each histogram bucket")
	statsCmd.Flags().BoolVar(&ratingsSplit, "by-format", false, "split the histogram by format")
	statsCmd.Flags().BoolVar(&skipHistogram, "no-histogram", false, "skip the rating histogram")
}

func runStats(cmd *cobra.Command, args []string) error {
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

	formats := statsFormats
	if len(formats) == 0 {
		formats = cfg.Harvest.Formats
	}

	stats, err := st.Stats(ctx, formats)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	fmt.Println(ui.RenderStats(stats))

	if allFormats {
		counts, err := st.CountByFormat(ctx, nil)
		if err != nil {
			return fmt.Errorf("counting formats: %w", err)
		}
		fmt.Println(ui.RenderFormatCounts(counts))
	}

	if skipHistogram {
		return nil
	}
	var split []string
	if ratingsSplit {
		split = formats
		if allFormats {
			split = nil
			counts, err := st.CountByFormat(ctx, nil)
			if err != nil {
				return fmt.Errorf("counting formats: %w", err)
			}
			for _, c := range counts {
				split = append(split, c.Format)
			}
		}
	}
	ranges := store.RatingRanges(ratingStart, ratingEnd, ratingStep)
	ratings, err := st.CountByRating(ctx, ranges, split)
	if err != nil {
		return fmt.Errorf("counting ratings: %w", err)
	}
	fmt.Println(ui.RenderRatingCounts(ratings))
	return nil
}
