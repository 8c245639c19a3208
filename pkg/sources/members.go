package sources

import (
	"context"

	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/presence"
	"replayscraper/pkg/showdown"
)

// OnlineMembers searches the replays of the users currently online
type OnlineMembers struct {
	base
	formats []string
	finder  presence.Finder
}

// NewOnlineMembers creates the online users source
func NewOnlineMembers(f Fetcher, ep showdown.Endpoints, finder presence.Finder, formats []string, m *metrics.Metrics, log logger.Logger) *OnlineMembers {
	return &OnlineMembers{
		base:    newBase("members", f, ep, m, log),
		formats: formats,
		finder:  finder,
	}
}

// Discover lists the online users and searches each of them in every format
func (s *OnlineMembers) Discover(ctx context.Context) []showdown.Reference {
	users := s.finder.UsersOnline(ctx)
	if len(users) == 0 {
		s.logger.Warn("No users online")
		return nil
	}

	refs, failures := s.userSearch(ctx, users, s.formats)
	s.logger.InfoWithFields("Online users searched", map[string]interface{}{
		"users": len(users),
	})
	logger.LogDiscovery(s.logger, s.name, len(refs), failures)
	return refs
}
