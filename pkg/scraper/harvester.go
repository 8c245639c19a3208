package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"replayscraper/internal/resolver"
	"replayscraper/internal/scheduler"
	"replayscraper/pkg/checkpoint"
	"replayscraper/pkg/config"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/presence"
	"replayscraper/pkg/queue"
	"replayscraper/pkg/ratelimit"
	"replayscraper/pkg/retry"
	"replayscraper/pkg/showdown"
	"replayscraper/pkg/sources"
	"replayscraper/pkg/store"
	"replayscraper/pkg/ui"
)

const (
	// DefaultShutdownGrace is how long running units get to finish once the
	// harvest stops
	DefaultShutdownGrace = 10 * time.Second

	metricsShutdownTimeout = 5 * time.Second
)

// Harvester orchestrates discovery, resolution and storage of replays
type Harvester struct {
	config     *config.Config
	store      *store.Store
	queue      *queue.Queue
	client     *showdown.Client
	endpoints  showdown.Endpoints
	limiter    *ratelimit.MinInterval
	finder     presence.Finder
	recent     sources.Source
	formats    sources.Source
	ladders    sources.Source
	rooms      sources.Source
	members    sources.Source
	resolver   *resolver.Resolver
	guard      *scheduler.SizeGuard
	checkpoint *checkpoint.Manager
	metrics    *metrics.Metrics
	tracker    *ui.StatusTracker
	grace      time.Duration
	logger     logger.Logger
}

// Option customises a Harvester
type Option func(*Harvester)

// WithFinder replaces the websocket username finder
func WithFinder(f presence.Finder) Option {
	return func(h *Harvester) { h.finder = f }
}

// WithMetrics uses m instead of a fresh set of collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harvester) { h.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(h *Harvester) { h.logger = l }
}

// WithShutdownGrace sets how long running units get to finish at shutdown
func WithShutdownGrace(d time.Duration) Option {
	return func(h *Harvester) { h.grace = d }
}

// New opens the store and builds the pipeline described by cfg
func New(cfg *config.Config, opts ...Option) (*Harvester, error) {
	h := &Harvester{
		config:  cfg,
		queue:   queue.New(),
		tracker: ui.NewStatusTracker(),
		grace:   DefaultShutdownGrace,
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	h.logger = h.logger.WithField("component", "harvester")

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	h.store = st

	log := h.logger
	h.client = showdown.NewClient(&cfg.Showdown, log)
	h.endpoints = showdown.NewEndpoints(cfg.Showdown.ReplayURL, cfg.Showdown.LadderURL)
	h.limiter = ratelimit.NewMinInterval(cfg.Resolver.MinDelay)
	if h.finder == nil {
		h.finder = presence.NewWebsocketFinder(cfg.Showdown.WebsocketURL, &cfg.Presence, log)
	}

	hv := cfg.Harvest
	h.recent = sources.NewRecent(h.client, h.endpoints, h.metrics, log)
	h.formats = sources.NewFormatSearch(h.client, h.endpoints, hv.Formats, hv.MaxPages, h.metrics, log)
	h.ladders = sources.NewLadderMembers(h.client, h.endpoints, hv.Formats, hv.LadderTop, h.metrics, log)
	h.rooms = sources.NewRoomMembers(h.client, h.endpoints, h.finder, hv.Rooms, hv.Formats, h.metrics, log)
	h.members = sources.NewOnlineMembers(h.client, h.endpoints, h.finder, hv.Formats, h.metrics, log)

	h.resolver = resolver.New(h.queue, h.client, h.store, h.limiter, h.endpoints, h.metrics, log)
	h.guard = scheduler.NewSizeGuard(h.store, cfg.Storage.MaxSize, h.metrics, log)
	if cfg.Storage.SnapshotPath != "" {
		h.checkpoint = checkpoint.NewManager(cfg.Storage.SnapshotPath, log)
	}

	return h, nil
}

// Queue returns the shared reference queue
func (h *Harvester) Queue() *queue.Queue {
	return h.queue
}

// Metrics returns the harvester's collectors
func (h *Harvester) Metrics() *metrics.Metrics {
	return h.metrics
}

// Tracker returns the running totals
func (h *Harvester) Tracker() *ui.StatusTracker {
	return h.tracker
}

// Close closes the store
func (h *Harvester) Close() error {
	return h.store.Close()
}

// Run harvests in the configured mode until the size budget is reached, ctx
// ends or, in format mode, the single pass completes. Both ways of stopping
// are normal and return nil.
func (h *Harvester) Run(ctx context.Context) error {
	h.restore()
	h.logStats(ctx)

	if h.config.Metrics.Enabled {
		srv := metrics.NewServer(h.config.Metrics.Listen, h.metrics, h.logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				h.logger.WithError(err).Warn("Failed to stop metrics server")
			}
		}()
	}

	mode := h.config.Harvest.Mode
	logger.LogComponentStart("harvester", map[string]interface{}{
		"mode":     mode,
		"db":       h.store.Path(),
		"max_size": store.HumanSize(h.guard.Max()),
		"queued":   h.queue.Len(),
	})

	var err error
	switch mode {
	case config.ModeRecent:
		err = h.runRecent(ctx)
	case config.ModeFormat:
		err = h.runFormat(ctx)
	default:
		err = h.runSchedule(ctx)
	}

	h.snapshot()
	h.logStats(ctx)

	switch {
	case errors.Is(err, scheduler.ErrStorageBudgetExceeded):
		logger.LogComponentStop("harvester", "storage budget reached")
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		logger.LogComponentStop("harvester", "interrupted")
		return nil
	case err != nil:
		return err
	}
	logger.LogComponentStop("harvester", "finished")
	return nil
}

// Jobs returns the periodic jobs of schedule mode. A zero interval in the
// configuration disables the matching job.
func (h *Harvester) Jobs() []scheduler.Job {
	s := h.config.Schedule
	return []scheduler.Job{
		{Name: h.recent.Name(), Interval: s.Recent, Run: func(ctx context.Context) { h.discover(ctx, h.recent) }},
		{Name: h.formats.Name(), Interval: s.Formats, Run: func(ctx context.Context) { h.discover(ctx, h.formats) }},
		{Name: h.ladders.Name(), Interval: s.Ladders, Run: func(ctx context.Context) { h.discover(ctx, h.ladders) }},
		{Name: h.rooms.Name(), Interval: s.Rooms, Run: func(ctx context.Context) { h.discover(ctx, h.rooms) }},
		{Name: h.members.Name(), Interval: s.Members, Run: func(ctx context.Context) { h.discover(ctx, h.members) }},
		{Name: "resolver", Interval: s.Resolver, Run: h.resolve},
	}
}

func (h *Harvester) runSchedule(ctx context.Context) error {
	unitCtx, cancelUnits := context.WithCancel(ctx)
	defer cancelUnits()

	sched := scheduler.New(h.Jobs(), h.config.Schedule.Tick, h.guard, h.metrics, h.logger)
	err := sched.Run(unitCtx)
	h.awaitUnits(sched, cancelUnits)
	return err
}

// awaitUnits gives running units the grace period to finish, then cancels
// them and waits once more so their references are back on the queue
// before the snapshot
func (h *Harvester) awaitUnits(sched *scheduler.Scheduler, cancel context.CancelFunc) {
	if sched.InFlight() == 0 {
		return
	}
	h.logger.InfoWithFields("Waiting for running units", map[string]interface{}{
		"in_flight": sched.InFlight(),
		"grace":     h.grace,
	})

	waitCtx, stop := context.WithTimeout(context.Background(), h.grace)
	err := sched.Wait(waitCtx)
	stop()
	if err == nil {
		return
	}

	h.logger.Warn("Grace period elapsed, cancelling running units")
	cancel()
	waitCtx, stop = context.WithTimeout(context.Background(), h.grace)
	defer stop()
	if err := sched.Wait(waitCtx); err != nil {
		h.logger.WarnWithFields("Units still running at shutdown", map[string]interface{}{
			"in_flight": sched.InFlight(),
		})
	}
}

func (h *Harvester) runRecent(ctx context.Context) error {
	for {
		if exceeded, _ := h.guard.Exceeded(); exceeded {
			return scheduler.ErrStorageBudgetExceeded
		}

		h.discover(ctx, h.recent)
		h.resolve(ctx)

		h.logger.DebugWithFields("Waiting for next pass", map[string]interface{}{
			"wait": h.config.Harvest.Wait,
		})
		if err := retry.Wait(ctx, h.config.Harvest.Wait); err != nil {
			return ctx.Err()
		}
	}
}

func (h *Harvester) runFormat(ctx context.Context) error {
	if exceeded, _ := h.guard.Exceeded(); exceeded {
		return scheduler.ErrStorageBudgetExceeded
	}

	h.discover(ctx, h.formats)
	h.resolve(ctx)
	return ctx.Err()
}

// discover runs one source and pushes what it found onto the queue
func (h *Harvester) discover(ctx context.Context, src sources.Source) {
	refs := src.Discover(ctx)
	if len(refs) == 0 {
		return
	}

	h.queue.Push(refs...)
	h.metrics.Discovered.WithLabelValues(src.Name()).Add(float64(len(refs)))
	h.metrics.QueueDepth.Set(float64(h.queue.Len()))
	h.tracker.AddDiscovered(len(refs))
}

// resolve drains the queue once
func (h *Harvester) resolve(ctx context.Context) {
	sum := h.resolver.Run(ctx)
	h.tracker.Record(sum.Stored, sum.Duplicates, sum.Failed)
	if sum.Stored > 0 {
		h.logStats(ctx)
	}
}

// restore pushes the references of a previous run's snapshot onto the queue
func (h *Harvester) restore() {
	if h.checkpoint == nil {
		return
	}

	refs, err := h.checkpoint.Load()
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load snapshot, starting with an empty queue")
		return
	}
	if len(refs) == 0 {
		return
	}

	h.queue.Push(refs...)
	h.metrics.QueueDepth.Set(float64(h.queue.Len()))
	if err := h.checkpoint.Delete(); err != nil {
		h.logger.WithError(err).Warn("Failed to delete restored snapshot")
	}
	h.logger.InfoWithFields("Restored pending references", map[string]interface{}{
		"references": len(refs),
	})
}

// snapshot writes whatever is left on the queue to the snapshot file
func (h *Harvester) snapshot() {
	if h.checkpoint == nil {
		return
	}

	refs := h.queue.Drain()
	if err := h.checkpoint.Save(refs); err != nil {
		h.logger.WithError(err).Error("Failed to save snapshot")
		h.queue.Push(refs...)
	}
	h.metrics.QueueDepth.Set(float64(h.queue.Len()))
}

func (h *Harvester) logStats(ctx context.Context) {
	st, err := h.store.Stats(context.WithoutCancel(ctx), h.config.Harvest.Formats)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read store stats")
		return
	}

	perFormat := make(map[string]int64, len(st.Formats))
	for _, f := range st.Formats {
		perFormat[f.Format] = f.Count
	}
	logger.LogStoreStats(h.logger, st.Total, st.Unrated, st.Size, perFormat)
}
