package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// StatusTracker keeps running totals for a harvest. It is updated from
// concurrent units, so every counter is atomic.
type StatusTracker struct {
	discovered atomic.Int64
	stored     atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
	StartTime  time.Time
}

// Totals is a point-in-time copy of a StatusTracker
type Totals struct {
	Discovered int64
	Stored     int64
	Duplicates int64
	Failed     int64
	Elapsed    time.Duration
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// AddDiscovered counts references pushed to the queue
func (st *StatusTracker) AddDiscovered(n int) {
	st.discovered.Add(int64(n))
}

// Record adds the outcome of one resolver pass
func (st *StatusTracker) Record(stored, duplicates, failed int) {
	st.stored.Add(int64(stored))
	st.duplicates.Add(int64(duplicates))
	st.failed.Add(int64(failed))
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// Totals returns the current counters
func (st *StatusTracker) Totals() Totals {
	return Totals{
		Discovered: st.discovered.Load(),
		Stored:     st.stored.Load(),
		Duplicates: st.duplicates.Load(),
		Failed:     st.failed.Load(),
		Elapsed:    st.GetElapsedTime(),
	}
}

// StoreRate returns the average number of replays stored per minute
func (t Totals) StoreRate() float64 {
	minutes := t.Elapsed.Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(t.Stored) / minutes
}

// PrintSummary writes a one-line summary of the harvest to w
func (st *StatusTracker) PrintSummary(w io.Writer) {
	t := st.Totals()
	fmt.Fprintf(w, "%s discovered %s | stored %s | duplicates %s | failed %s | %.1f/min in %s\n",
		Green("[HARVESTED]"),
		humanize.Comma(t.Discovered),
		humanize.Comma(t.Stored),
		humanize.Comma(t.Duplicates),
		humanize.Comma(t.Failed),
		t.StoreRate(),
		t.Elapsed.Round(time.Second),
	)
}
