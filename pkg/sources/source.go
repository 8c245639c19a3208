package sources

import (
	"context"

	errs "replayscraper/pkg/errors"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/showdown"
)

// Fetcher is the part of the showdown client the sources need
type Fetcher interface {
	GetJSON(ctx context.Context, url string, target interface{}) error
}

// Source produces candidate references. Discover never fails as a whole:
// sub-steps that fail are logged and contribute nothing.
type Source interface {
	Name() string
	Discover(ctx context.Context) []showdown.Reference
}

// base carries what every source needs to fetch and report
type base struct {
	name      string
	fetcher   Fetcher
	endpoints showdown.Endpoints
	logger    logger.Logger
	metrics   *metrics.Metrics
}

func newBase(name string, f Fetcher, ep showdown.Endpoints, m *metrics.Metrics, log logger.Logger) base {
	if log == nil {
		log = logger.GetLogger()
	}
	return base{
		name:      name,
		fetcher:   f,
		endpoints: ep,
		logger:    log.WithFields(map[string]interface{}{"component": "source", "source": name}),
		metrics:   m,
	}
}

// Name returns the source name used in logs and metrics
func (b *base) Name() string {
	return b.name
}

// fail records a failed sub-step
func (b *base) fail(err error, msg string, fields map[string]interface{}) {
	if b.metrics != nil {
		b.metrics.FetchFailures.WithLabelValues(b.name, string(errs.TypeOf(err))).Inc()
	}
	b.logger.WithError(err).WarnWithFields(msg, fields)
}

// search fetches one search.json page and converts it. ok is false when the
// fetch failed; the failure has already been recorded.
func (b *base) search(ctx context.Context, url string, fields map[string]interface{}) ([]showdown.Reference, bool) {
	var page []showdown.SearchResult
	if err := b.fetcher.GetJSON(ctx, url, &page); err != nil {
		b.fail(err, "Search request failed", fields)
		return nil, false
	}
	return showdown.References(page), true
}

// userSearch collects the replays of every user in every format
func (b *base) userSearch(ctx context.Context, users, formats []string) ([]showdown.Reference, int) {
	var (
		refs     []showdown.Reference
		failures int
	)
	for _, format := range formats {
		for _, user := range users {
			if ctx.Err() != nil {
				return refs, failures
			}
			found, ok := b.search(ctx, b.endpoints.UserSearch(user, format), map[string]interface{}{
				"user":   user,
				"format": format,
			})
			if !ok {
				failures++
				continue
			}
			refs = append(refs, found...)
		}
	}
	return refs, failures
}
