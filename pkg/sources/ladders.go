package sources

import (
	"context"

	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/showdown"
)

// DefaultLadderTop is how many ranked players are searched per format
const DefaultLadderTop = 100

// LadderMembers searches the replays of the top ranked players of each
// format
type LadderMembers struct {
	base
	formats []string
	top     int
}

// NewLadderMembers creates the ladder source
func NewLadderMembers(f Fetcher, ep showdown.Endpoints, formats []string, top int, m *metrics.Metrics, log logger.Logger) *LadderMembers {
	if top <= 0 {
		top = DefaultLadderTop
	}
	return &LadderMembers{
		base:    newBase("ladders", f, ep, m, log),
		formats: formats,
		top:     top,
	}
}

// Discover reads each format's ladder and searches every listed player in
// that format. Formats without a compact form are skipped.
func (s *LadderMembers) Discover(ctx context.Context) []showdown.Reference {
	var (
		refs     []showdown.Reference
		failures int
	)

	for _, format := range s.formats {
		if ctx.Err() != nil {
			break
		}

		compact, ok := showdown.CompactFormat(format)
		if !ok {
			s.logger.WarnWithFields("Format has no compact form, skipping", map[string]interface{}{
				"format": format,
			})
			continue
		}

		var ladder showdown.LadderResponse
		if err := s.fetcher.GetJSON(ctx, s.endpoints.Ladder(compact), &ladder); err != nil {
			s.fail(err, "Ladder request failed", map[string]interface{}{"format": compact})
			failures++
			continue
		}

		users := ladder.Usernames(s.top)
		found, failed := s.userSearch(ctx, users, []string{format})
		refs = append(refs, found...)
		failures += failed

		s.logger.DebugWithFields("Ladder searched", map[string]interface{}{
			"format":  format,
			"players": len(users),
			"found":   len(found),
		})
	}

	logger.LogDiscovery(s.logger, s.name, len(refs), failures)
	return refs
}
