package sources

import (
	"context"
	"math/rand/v2"

	"replayscraper/pkg/logger"
	"replayscraper/pkg/metrics"
	"replayscraper/pkg/presence"
	"replayscraper/pkg/showdown"
)

// RoomMembers searches the replays of the users present in a randomly
// chosen chat room
type RoomMembers struct {
	base
	formats []string
	rooms   []string
	finder  presence.Finder
	pick    func(n int) int
}

// NewRoomMembers creates the room source
func NewRoomMembers(f Fetcher, ep showdown.Endpoints, finder presence.Finder, rooms, formats []string, m *metrics.Metrics, log logger.Logger) *RoomMembers {
	return &RoomMembers{
		base:    newBase("rooms", f, ep, m, log),
		formats: formats,
		rooms:   rooms,
		finder:  finder,
		pick:    rand.IntN,
	}
}

// Discover picks one room, lists its users and searches each of them in
// every format
func (s *RoomMembers) Discover(ctx context.Context) []showdown.Reference {
	if len(s.rooms) == 0 {
		return nil
	}

	room := s.rooms[s.pick(len(s.rooms))]
	users := s.finder.UsersInRoom(ctx, room)
	if len(users) == 0 {
		s.logger.WarnWithFields("No users found in room", map[string]interface{}{"room": room})
		return nil
	}

	refs, failures := s.userSearch(ctx, users, s.formats)
	s.logger.InfoWithFields("Room searched", map[string]interface{}{
		"room":  room,
		"users": len(users),
	})
	logger.LogDiscovery(s.logger, s.name, len(refs), failures)
	return refs
}
