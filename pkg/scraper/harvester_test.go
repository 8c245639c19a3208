package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replayscraper/pkg/checkpoint"
	"replayscraper/pkg/config"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/showdown"
	"replayscraper/pkg/store"
)

// mockShowdownServer mimics the replay and ladder servers
type mockShowdownServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	recent   []showdown.SearchResult
	pages    map[string][][]showdown.SearchResult
	requests atomic.Int64
	logCalls atomic.Int64
}

func newMockShowdownServer() *mockShowdownServer {
	m := &mockShowdownServer{pages: map[string][][]showdown.SearchResult{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)
		q := r.URL.Query()

		m.mu.Lock()
		defer m.mu.Unlock()

		results := []showdown.SearchResult{}
		switch {
		case q.Get("user") != "":
		case q.Get("format") != "":
			pages := m.pages[q.Get("format")]
			page, _ := strconv.Atoi(q.Get("page"))
			if page >= 1 && page <= len(pages) {
				results = pages[page-1]
			}
		default:
			results = m.recent
		}
		_ = json.NewEncoder(w).Encode(results)
	})
	mux.HandleFunc("/ladder/", func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)
		_, _ = w.Write([]byte(`{"toplist":[]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)
		id, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".log")
		if !ok {
			http.NotFound(w, r)
			return
		}
		m.logCalls.Add(1)
		fmt.Fprintf(w, "|j|☆p1\n|j|☆p2\n|win|p1\n|id|%s\n", id)
	})

	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockShowdownServer) Close() {
	m.server.Close()
}

func (m *mockShowdownServer) setRecent(results ...showdown.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = results
}

func (m *mockShowdownServer) setPages(format string, pages ...[]showdown.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[format] = pages
}

func result(id string, rating int) showdown.SearchResult {
	r := showdown.SearchResult{ID: id, Format: "[Gen 9] OU"}
	if rating > 0 {
		r.Rating = &rating
	}
	return r
}

// stubFinder reports a fixed list of users
type stubFinder struct {
	calls atomic.Int64
	users []string
}

func (f *stubFinder) UsersInRoom(ctx context.Context, room string) []string {
	f.calls.Add(1)
	return f.users
}

func (f *stubFinder) UsersOnline(ctx context.Context) []string {
	return f.UsersInRoom(ctx, "lobby")
}

func testConfig(t *testing.T, srv *mockShowdownServer, mode string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Showdown.ReplayURL = srv.server.URL
	cfg.Showdown.LadderURL = srv.server.URL + "/ladder"
	cfg.Showdown.RequestTimeout = 5 * time.Second
	cfg.Harvest.Mode = mode
	cfg.Harvest.Formats = []string{"[Gen 9] OU"}
	cfg.Harvest.Rooms = []string{"lobby"}
	cfg.Harvest.Wait = 20 * time.Millisecond
	cfg.Resolver.MinDelay = time.Millisecond
	cfg.Storage.Path = filepath.Join(dir, "logs.db")
	cfg.Storage.SnapshotPath = filepath.Join(dir, "pending.json")
	return cfg
}

func newTestHarvester(t *testing.T, cfg *config.Config, opts ...Option) *Harvester {
	t.Helper()
	opts = append([]Option{
		WithFinder(&stubFinder{}),
		WithLogger(logger.NewTestLogger()),
		WithShutdownGrace(time.Second),
	}, opts...)

	h, err := New(cfg, opts...)
	require.NoError(t, err)
	return h
}

func countStored(t *testing.T, path string) int64 {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	stats, err := st.Stats(context.Background(), nil)
	require.NoError(t, err)
	return stats.Total
}

func TestRunFormatMode(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()
	srv.setPages("[Gen 9] OU",
		[]showdown.SearchResult{result("gen9ou-1", 1500), result("gen9ou-2", 0), result("gen9ou-3", 1320)},
		[]showdown.SearchResult{result("gen9ou-3", 1320), result("gen9ou-4", 1710)},
	)

	cfg := testConfig(t, srv, config.ModeFormat)
	h := newTestHarvester(t, cfg)

	require.NoError(t, h.Run(context.Background()))
	require.NoError(t, h.Close())

	totals := h.Tracker().Totals()
	assert.Equal(t, int64(5), totals.Discovered)
	assert.Equal(t, int64(4), totals.Stored)
	assert.Equal(t, int64(1), totals.Duplicates)
	assert.Equal(t, int64(4), srv.logCalls.Load())
	assert.Equal(t, int64(4), countStored(t, cfg.Storage.Path))
	assert.Equal(t, 5.0, testutil.ToFloat64(h.Metrics().Discovered.WithLabelValues("formats")))

	// nothing left to snapshot
	assert.NoFileExists(t, cfg.Storage.SnapshotPath)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()
	srv.setPages("[Gen 9] OU", []showdown.SearchResult{result("a", 1100), result("b", 1200)})

	cfg := testConfig(t, srv, config.ModeFormat)
	for i := 0; i < 2; i++ {
		h := newTestHarvester(t, cfg)
		require.NoError(t, h.Run(context.Background()))
		require.NoError(t, h.Close())
	}

	assert.Equal(t, int64(2), srv.logCalls.Load())
	assert.Equal(t, int64(2), countStored(t, cfg.Storage.Path))
}

func TestRunStopsWhenBudgetExceeded(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()
	srv.setRecent(result("r1", 0))

	cfg := testConfig(t, srv, config.ModeSchedule)
	cfg.Storage.MaxSize = 1
	h := newTestHarvester(t, cfg)
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, h.Run(ctx))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int64(0), srv.requests.Load())
}

func TestRunScheduleMode(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()
	srv.setRecent(result("r1", 1050), result("r2", 0), result("r3", 1400))

	cfg := testConfig(t, srv, config.ModeSchedule)
	cfg.Schedule = config.ScheduleConfig{
		Recent:   30 * time.Millisecond,
		Rooms:    30 * time.Millisecond,
		Resolver: 10 * time.Millisecond,
		Tick:     5 * time.Millisecond,
	}
	finder := &stubFinder{}
	h := newTestHarvester(t, cfg, WithFinder(finder))

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	require.NoError(t, h.Run(ctx))
	require.NoError(t, h.Close())

	assert.Equal(t, int64(3), countStored(t, cfg.Storage.Path))
	// overlapping resolver units may both fetch a replay before either
	// stores it
	assert.GreaterOrEqual(t, srv.logCalls.Load(), int64(3))
	assert.Greater(t, finder.calls.Load(), int64(0))
	assert.GreaterOrEqual(t, testutil.ToFloat64(h.Metrics().Discovered.WithLabelValues("recent")), 3.0)
}

func TestRunSnapshotsQueueOnInterrupt(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()
	srv.setRecent(result("r1", 0), result("r2", 0), result("r3", 0), result("r4", 0), result("r5", 0))

	cfg := testConfig(t, srv, config.ModeRecent)
	// the first fetch goes through, every later one waits on the limiter
	cfg.Resolver.MinDelay = time.Hour
	h := newTestHarvester(t, cfg)

	// a deadline would let the limiter give up at once, cancel instead
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(300*time.Millisecond, cancel)

	require.NoError(t, h.Run(ctx))
	require.NoError(t, h.Close())

	assert.Equal(t, int64(1), countStored(t, cfg.Storage.Path))

	refs, err := checkpoint.NewManager(cfg.Storage.SnapshotPath, logger.NewNopLogger()).Load()
	require.NoError(t, err)
	assert.Len(t, refs, 4)
}

func TestRunRestoresSnapshot(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()

	cfg := testConfig(t, srv, config.ModeFormat)
	rating := 1600
	mgr := checkpoint.NewManager(cfg.Storage.SnapshotPath, logger.NewNopLogger())
	require.NoError(t, mgr.Save([]showdown.Reference{
		{ID: "saved-1", Format: "[Gen 9] OU", Rating: &rating},
		{ID: "saved-2", Format: "[Gen 9] OU"},
	}))

	h := newTestHarvester(t, cfg)
	require.NoError(t, h.Run(context.Background()))
	require.NoError(t, h.Close())

	assert.Equal(t, int64(2), srv.logCalls.Load())
	assert.Equal(t, int64(2), countStored(t, cfg.Storage.Path))
	assert.False(t, mgr.Exists())
}

func TestJobsFollowConfiguredIntervals(t *testing.T) {
	srv := newMockShowdownServer()
	defer srv.Close()

	cfg := testConfig(t, srv, config.ModeSchedule)
	cfg.Schedule.Ladders = 0
	h := newTestHarvester(t, cfg)
	defer h.Close()

	intervals := map[string]time.Duration{}
	for _, job := range h.Jobs() {
		intervals[job.Name] = job.Interval
	}
	assert.Equal(t, map[string]time.Duration{
		"recent":   cfg.Schedule.Recent,
		"formats":  cfg.Schedule.Formats,
		"ladders":  0,
		"rooms":    cfg.Schedule.Rooms,
		"members":  cfg.Schedule.Members,
		"resolver": cfg.Schedule.Resolver,
	}, intervals)
}
