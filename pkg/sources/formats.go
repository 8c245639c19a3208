package sources

import (
	"context"

	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/showdown"
)

// DefaultMaxPages bounds the pages read per format
const DefaultMaxPages = 100

// FormatSearch pages through the search results of each format
type FormatSearch struct {
	base
	formats  []string
	maxPages int
}

// NewFormatSearch creates the per-format search source
func NewFormatSearch(f Fetcher, ep showdown.Endpoints, formats []string, maxPages int, m *metrics.Metrics, log logger.Logger) *FormatSearch {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &FormatSearch{
		base:     newBase("formats", f, ep, m, log),
		formats:  formats,
		maxPages: maxPages,
	}
}

// Discover reads pages 1..maxPages of every format. A format ends at the
// first page that parses to no results. A failed page is skipped and the
// following pages are still read.
func (s *FormatSearch) Discover(ctx context.Context) []showdown.Reference {
	var (
		refs     []showdown.Reference
		failures int
	)

	for _, format := range s.formats {
		found := 0
		for page := 1; page <= s.maxPages; page++ {
			if ctx.Err() != nil {
				logger.LogDiscovery(s.logger, s.name, len(refs), failures)
				return refs
			}

			results, ok := s.search(ctx, s.endpoints.Search(format, page), map[string]interface{}{
				"format": format,
				"page":   page,
			})
			if !ok {
				failures++
				continue
			}
			if len(results) == 0 {
				break
			}
			found += len(results)
			refs = append(refs, results...)
		}

		s.logger.DebugWithFields("Format searched", map[string]interface{}{
			"format": format,
			"found":  found,
		})
	}

	logger.LogDiscovery(s.logger, s.name, len(refs), failures)
	return refs
}
