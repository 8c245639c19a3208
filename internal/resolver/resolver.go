package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "replayscraper/pkg/errors"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/queue"
	"replayscraper/pkg/ratelimit"
	"replayscraper/pkg/showdown"
	"replayscraper/pkg/store"
)

// ErrInterrupted marks a reference abandoned because the unit ran out of
// time before its fetch could start. Run puts such references back.
var ErrInterrupted = errors.New("resolver interrupted")

// Outcome is what happened to one reference
type Outcome int

const (
	OutcomeStored Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Result represents the result of resolving one reference
type Result struct {
	Ref      showdown.Reference
	Outcome  Outcome
	Error    error
	Duration time.Duration
}

// Summary totals the outcomes of one Run
type Summary struct {
	Stored     int
	Duplicates int
	Failed     int
}

// LogFetcher downloads the text log of a replay
type LogFetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// ReplayStore is the part of the store the resolver writes to
type ReplayStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, r store.Replay) (bool, error)
}

// Resolver drains the queue, fetching and storing every replay not yet
// stored
type Resolver struct {
	queue     *queue.Queue
	fetcher   LogFetcher
	store     ReplayStore
	limiter   ratelimit.Limiter
	endpoints showdown.Endpoints
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// New creates a resolver over the shared queue and limiter
func New(
	q *queue.Queue,
	fetcher LogFetcher,
	st ReplayStore,
	limiter ratelimit.Limiter,
	ep showdown.Endpoints,
	m *metrics.Metrics,
	log logger.Logger,
) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Resolver{
		queue:     q,
		fetcher:   fetcher,
		store:     st,
		limiter:   limiter,
		endpoints: ep,
		metrics:   m,
		logger:    log.WithField("component", "resolver"),
	}
}

// Run pops references until the queue is empty or ctx ends. A reference
// interrupted by cancellation is pushed back so it is not lost.
func (r *Resolver) Run(ctx context.Context) Summary {
	var sum Summary
	start := time.Now()

	for ctx.Err() == nil {
		ref, ok := r.queue.Pop()
		if !ok {
			break
		}
		r.metrics.QueueDepth.Set(float64(r.queue.Len()))

		res := r.Process(ctx, ref)
		if res.Outcome == OutcomeFailed && (ctx.Err() != nil || errors.Is(res.Error, ErrInterrupted)) {
			r.queue.Push(ref)
			break
		}

		switch res.Outcome {
		case OutcomeStored:
			sum.Stored++
		case OutcomeDuplicate:
			sum.Duplicates++
		default:
			sum.Failed++
		}
	}

	r.metrics.QueueDepth.Set(float64(r.queue.Len()))
	if sum != (Summary{}) {
		r.logger.InfoWithFields("Resolver pass finished", map[string]interface{}{
			"stored":     sum.Stored,
			"duplicates": sum.Duplicates,
			"failed":     sum.Failed,
			"remaining":  r.queue.Len(),
			"duration":   time.Since(start),
		})
	}
	return sum
}

// Process resolves a single reference: skip if stored, otherwise wait for
// the limiter, fetch the log and insert it
func (r *Resolver) Process(ctx context.Context, ref showdown.Reference) Result {
	start := time.Now()
	result := Result{Ref: ref, Outcome: OutcomeFailed}
	log := r.logger.WithField("id", ref.ID)

	exists, err := r.store.Exists(ctx, ref.ID)
	if err != nil {
		// the insert below is still idempotent, so carry on
		log.WithError(err).Warn("Existence check failed")
	}
	if exists {
		r.metrics.Duplicates.Inc()
		result.Outcome = OutcomeDuplicate
		result.Duration = time.Since(start)
		return result
	}

	if err := r.limiter.Wait(ctx); err != nil {
		result.Error = fmt.Errorf("%w: waiting for rate limit: %w", ErrInterrupted, err)
		result.Duration = time.Since(start)
		return result
	}

	body, err := r.fetcher.GetText(ctx, r.endpoints.Log(ref.ID))
	if err != nil {
		result.Error = fmt.Errorf("fetch failed: %w", err)
		result.Duration = time.Since(start)
		if !errors.Is(err, context.Canceled) {
			r.metrics.FetchFailures.WithLabelValues("resolver", string(errs.TypeOf(err))).Inc()
		}
		log.WithError(err).Warn("Dropping reference, log fetch failed")
		return result
	}

	inserted, err := r.store.Add(ctx, store.Replay{
		ID:     ref.ID,
		Format: ref.Format,
		Rating: ref.Rating,
		Log:    body,
	})
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		log.WithError(err).Error("Failed to store replay")
		return result
	}

	if !inserted {
		r.metrics.Duplicates.Inc()
		result.Outcome = OutcomeDuplicate
		return result
	}

	r.metrics.Stored.Inc()
	result.Outcome = OutcomeStored
	log.DebugWithFields("Replay stored", map[string]interface{}{
		"format":   ref.Format,
		"size":     len(body),
		"duration": result.Duration,
	})
	return result
}
