package ui

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"replayscraper/pkg/store"
)

func TestStatusTrackerConcurrent(t *testing.T) {
	st := NewStatusTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				st.AddDiscovered(2)
				st.Record(1, 1, 0)
			}
		}()
	}
	wg.Wait()

	totals := st.Totals()
	assert.Equal(t, int64(1600), totals.Discovered)
	assert.Equal(t, int64(800), totals.Stored)
	assert.Equal(t, int64(800), totals.Duplicates)
	assert.Equal(t, int64(0), totals.Failed)
}

func TestStoreRate(t *testing.T) {
	assert.Equal(t, 0.0, Totals{Stored: 10}.StoreRate())
	assert.InDelta(t, 5.0, Totals{Stored: 10, Elapsed: 2 * time.Minute}.StoreRate(), 0.001)
}

func TestPrintSummary(t *testing.T) {
	st := NewStatusTracker()
	st.AddDiscovered(1500)
	st.Record(1200, 250, 50)

	var buf bytes.Buffer
	st.PrintSummary(&buf)

	out := buf.String()
	assert.Contains(t, out, "discovered 1,500")
	assert.Contains(t, out, "stored 1,200")
	assert.Contains(t, out, "duplicates 250")
	assert.Contains(t, out, "failed 50")
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(&store.Stats{
		Total:   12345,
		Unrated: 45,
		Size:    2_500_000,
		Formats: []store.FormatCount{
			{Format: "[Gen 9] OU", Count: 12000},
			{Format: "[Gen 9] Ubers", Count: 0},
		},
	})

	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "2.5 MB")
	assert.Contains(t, out, "[Gen 9] OU")
	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "[Gen 9] Ubers")
}

func TestRenderStatsWithoutFormats(t *testing.T) {
	out := RenderStats(&store.Stats{Total: 3})
	assert.Contains(t, out, "Store")
	assert.NotContains(t, out, "FORMAT")
}

func TestRenderRatingCounts(t *testing.T) {
	out := RenderRatingCounts([]store.RatingCount{
		{Range: store.RatingRange{Min: 1000, Max: 1100}, Format: "All", Count: 7},
		{Range: store.RatingRange{Min: 1100, Max: 1200}, Format: "All", Count: 3},
	})

	assert.Contains(t, out, "RATING")
	assert.Contains(t, out, "1000-1100")
	assert.Contains(t, out, "1100-1200")
	assert.Contains(t, out, "All")
}

func TestWithDetails(t *testing.T) {
	assert.Equal(t, "failed", withDetails("failed", nil))
	assert.Equal(t, "failed", withDetails("failed", []string{""}))
	assert.Equal(t, "failed: boom", withDetails("failed", []string{"boom"}))
	assert.Equal(t, "failed: a, b", withDetails("failed", []string{"a", "", "b"}))
}
