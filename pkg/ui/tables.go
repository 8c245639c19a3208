package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"replayscraper/pkg/store"
)

// newTable creates a bordered table whose last column holds numbers
func newTable(headers ...string) *table.Table {
	last := len(headers) - 1
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == last:
				return valueStyle
			default:
				return labelStyle
			}
		})
}

func section(title string, t *table.Table) string {
	return titleStyle.Render(title) + "\n" + t.Render()
}

// RenderStats renders the store summary followed by the per-format counts
func RenderStats(st *store.Stats) string {
	summary := newTable("STORE", "VALUE").Rows(
		[]string{"Replays", humanize.Comma(st.Total)},
		[]string{"Unrated", humanize.Comma(st.Unrated)},
		[]string{"Size", humanize.Bytes(uint64(max(st.Size, 0)))},
	)

	var b strings.Builder
	b.WriteString(section("Store", summary))
	if len(st.Formats) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderFormatCounts(st.Formats))
	}
	return b.String()
}

// RenderFormatCounts renders one row per format
func RenderFormatCounts(counts []store.FormatCount) string {
	t := newTable("FORMAT", "REPLAYS")
	for _, c := range counts {
		t.Row(c.Format, humanize.Comma(c.Count))
	}
	return section("Formats", t)
}

// RenderRatingCounts renders the rating histogram, one row per range and
// format
func RenderRatingCounts(counts []store.RatingCount) string {
	t := newTable("RATING", "FORMAT", "REPLAYS")
	for _, c := range counts {
		t.Row(c.Range.Label(), c.Format, humanize.Comma(c.Count))
	}
	return section("Ratings", t)
}
