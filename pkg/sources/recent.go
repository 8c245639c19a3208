package sources

import (
	"context"

	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/showdown"
)

// Recent reads the most recently uploaded public replays
type Recent struct {
	base
}

// NewRecent creates the recent-replays source
func NewRecent(f Fetcher, ep showdown.Endpoints, m *metrics.Metrics, log logger.Logger) *Recent {
	return &Recent{base: newBase("recent", f, ep, m, log)}
}

// Discover performs a single fetch of the recent list
func (s *Recent) Discover(ctx context.Context) []showdown.Reference {
	refs, ok := s.search(ctx, s.endpoints.Recent(), nil)
	failures := 0
	if !ok {
		failures = 1
	}
	logger.LogDiscovery(s.logger, s.name, len(refs), failures)
	return refs
}
