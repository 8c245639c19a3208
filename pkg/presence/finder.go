package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"replayscraper/pkg/config"
	errs "replayscraper/pkg/errors"
	"replayscraper/pkg/logger"
	"replayscraper/pkg/retry"
	"replayscraper/pkg/showdown"
)

// LobbyRoom is the room whose members stand in for "users online"
const LobbyRoom = "lobby"

// Finder discovers the usernames currently present on the server. Both
// methods return an empty list when discovery fails.
type Finder interface {
	UsersInRoom(ctx context.Context, room string) []string
	UsersOnline(ctx context.Context) []string
}

// WebsocketFinder joins a chat room over the simulator websocket and reads
// the member list the server sends on join
type WebsocketFinder struct {
	url    string
	dialer *websocket.Dialer
	wait   time.Duration
	retry  *retry.Config
	logger logger.Logger
}

// NewWebsocketFinder creates a finder for the configured websocket endpoint
func NewWebsocketFinder(url string, cfg *config.PresenceConfig, log logger.Logger) *WebsocketFinder {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "presence")

	return &WebsocketFinder{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Wait,
		},
		wait: cfg.Wait,
		retry: &retry.Config{
			MaxAttempts: cfg.Retries,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    cfg.RetryDelay,
				MaxDelay:     10 * cfg.RetryDelay,
				Multiplier:   1.5,
				JitterFactor: 0.2,
			},
			RetryIf: retry.DefaultRetryIf,
			Logger:  log,
		},
		logger: log,
	}
}

// UsersOnline returns the members of the lobby
func (f *WebsocketFinder) UsersOnline(ctx context.Context) []string {
	return f.UsersInRoom(ctx, LobbyRoom)
}

// UsersInRoom returns the user ids present in room
func (f *WebsocketFinder) UsersInRoom(ctx context.Context, room string) []string {
	room = showdown.ToID(room)
	log := f.logger.WithField("room", room)

	users, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]string, error) {
		return f.fetchRoom(ctx, room)
	}, f.retry)
	if err != nil {
		log.WithError(err).Warn("Username discovery failed")
		return []string{}
	}

	log.InfoWithFields("Usernames discovered", map[string]interface{}{
		"count": len(users),
	})
	return users
}

// fetchRoom performs one connect, join and read cycle
func (f *WebsocketFinder) fetchRoom(ctx context.Context, room string) ([]string, error) {
	if f.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.wait)
		defer cancel()
	}

	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "dial %s: %v", f.url, err)
	}
	defer conn.Close()

	// unblock ReadMessage when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("|/join "+room)); err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "join %s: %v", room, err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errs.New(errs.ErrorTypeNetwork, 0, "waiting for %s members: %v", room, ctx.Err())
			}
			return nil, errs.New(errs.ErrorTypeNetwork, 0, "reading %s: %v", room, err)
		}

		users, done, err := scanFrame(string(data))
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", room, err)
		}
		if done {
			return users, nil
		}
	}
}

// scanFrame looks for the member list in one server frame. A frame holds
// newline separated messages, optionally prefixed by a ">roomid" line.
func scanFrame(frame string) ([]string, bool, error) {
	for _, line := range strings.Split(frame, "\n") {
		switch {
		case strings.HasPrefix(line, "|users|"):
			return parseUsers(strings.TrimPrefix(line, "|users|")), true, nil
		case strings.HasPrefix(line, "|noinit|"):
			return nil, false, errs.New(errs.ErrorTypeNotFound, 0, "join refused: %s", strings.TrimPrefix(line, "|noinit|"))
		}
	}
	return nil, false, nil
}

// parseUsers parses "COUNT,<rank>name[@status],..." into unique user ids
func parseUsers(payload string) []string {
	entries := strings.Split(payload, ",")
	if len(entries) < 2 {
		return []string{}
	}

	seen := make(map[string]bool, len(entries)-1)
	users := make([]string, 0, len(entries)-1)
	for _, entry := range entries[1:] {
		if len(entry) < 2 {
			continue
		}
		name := entry[1:]
		if i := strings.IndexByte(name, '@'); i >= 0 {
			name = name[:i]
		}
		id := showdown.ToID(name)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		users = append(users, id)
	}
	return users
}
