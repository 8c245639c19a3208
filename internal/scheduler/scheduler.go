package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
)

// DefaultTick is how often the loop checks for due jobs
const DefaultTick = time.Second

// ErrStorageBudgetExceeded is returned by Run once the size guard trips
var ErrStorageBudgetExceeded = errors.New("storage budget exceeded")

// Job is a unit of periodic work. Interval zero or less disables the job.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler dispatches every due job on its own goroutine. The loop never
// waits for a unit to finish, so a slow job cannot delay the others. A job
// whose units outlast its interval overlaps with itself; running counts
// that per job and each such dispatch is logged.
type Scheduler struct {
	jobs     []Job
	tick     time.Duration
	guard    *SizeGuard
	group    errgroup.Group
	inFlight atomic.Int64
	running  []atomic.Int64
	metrics  *metrics.Metrics
	logger   logger.Logger
}

// New creates a scheduler over a fixed set of jobs
func New(jobs []Job, tick time.Duration, guard *SizeGuard, m *metrics.Metrics, log logger.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Scheduler{
		jobs:    jobs,
		running: make([]atomic.Int64, len(jobs)),
		tick:    tick,
		guard:   guard,
		metrics: m,
		logger:  log.WithField("component", "scheduler"),
	}
}

// Run loops until the size guard trips or ctx ends. All jobs are due at
// start. Units still running when Run returns are left alone; use Wait to
// join them.
func (s *Scheduler) Run(ctx context.Context) error {
	next := make([]time.Time, len(s.jobs))
	start := time.Now()
	for i := range next {
		next[i] = start
	}

	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.Interval > 0 {
			names = append(names, job.Name)
		}
	}
	s.logger.InfoWithFields("Scheduler started", map[string]interface{}{
		"jobs": names,
		"tick": s.tick,
	})

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if s.guard != nil {
			if exceeded, _ := s.guard.Exceeded(); exceeded {
				s.logger.Warn("Storage budget exceeded, stopping scheduler")
				return ErrStorageBudgetExceeded
			}
		}

		now := time.Now()
		for i, job := range s.jobs {
			if job.Interval <= 0 || now.Before(next[i]) {
				continue
			}
			s.dispatch(ctx, i)
			next[i] = advance(next[i], job.Interval, now)
		}

		select {
		case <-ctx.Done():
			s.logger.InfoWithFields("Scheduler stopping", map[string]interface{}{
				"reason":    ctx.Err().Error(),
				"in_flight": s.InFlight(),
			})
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// dispatch starts one unit of the i-th job in the background
func (s *Scheduler) dispatch(ctx context.Context, i int) {
	job := s.jobs[i]
	unit := uuid.NewString()
	log := s.logger.WithFields(map[string]interface{}{
		"job":  job.Name,
		"unit": unit,
	})

	if prev := s.running[i].Add(1) - 1; prev > 0 {
		log.InfoWithFields("Previous units still running", map[string]interface{}{
			"running": prev,
		})
	}
	s.inFlight.Add(1)
	s.metrics.InFlight.WithLabelValues(job.Name).Inc()
	s.metrics.Dispatches.WithLabelValues(job.Name).Inc()

	s.group.Go(func() (err error) {
		start := time.Now()
		defer func() {
			s.running[i].Add(-1)
			s.inFlight.Add(-1)
			s.metrics.InFlight.WithLabelValues(job.Name).Dec()
			if r := recover(); r != nil {
				log.ErrorWithFields("Unit panicked", map[string]interface{}{
					"panic": fmt.Sprint(r),
				})
			}
		}()

		log.Debug("Unit started")
		job.Run(ctx)
		log.DebugWithFields("Unit finished", map[string]interface{}{
			"duration": time.Since(start),
		})
		return nil
	})
}

// InFlight returns the number of running units
func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

// Running returns the number of units of the named job still running
func (s *Scheduler) Running(name string) int {
	total := 0
	for i, job := range s.jobs {
		if job.Name == name {
			total += int(s.running[i].Load())
		}
	}
	return total
}

// Wait blocks until every dispatched unit has returned or ctx ends
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advance moves next forward by whole intervals until it is after now
func advance(next time.Time, interval time.Duration, now time.Time) time.Time {
	if next.After(now) {
		return next
	}
	missed := now.Sub(next)/interval + 1
	return next.Add(missed * interval)
}
