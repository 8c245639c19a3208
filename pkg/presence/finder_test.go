package presence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replayscraper/pkg/config"
	"replayscraper/pkg/logger"
)

func TestParseUsers(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected []string
	}{
		{"ranked and plain", "3, Alice,@Bob Smith@!,+carol", []string{"alice", "bobsmith", "carol"}},
		{"duplicates collapse", "2, Alice, alice", []string{"alice"}},
		{"count only", "0", []string{}},
		{"short entries skipped", "2, ,#", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseUsers(tt.payload))
		})
	}
}

func TestScanFrame(t *testing.T) {
	users, done, err := scanFrame(">lobby\n|init|chat\n|title|Lobby\n|users|2, Alice,*Bot")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"alice", "bot"}, users)

	_, done, err = scanFrame("|challstr|4|abc")
	require.NoError(t, err)
	assert.False(t, done)

	_, _, err = scanFrame(">nowhere\n|noinit|nonexistent|The room \"nowhere\" does not exist.")
	assert.Error(t, err)
}

// fakeServer serves a websocket that answers joins. The first failFirst
// connections are dropped before the join is answered.
func fakeServer(t *testing.T, failFirst int32, reply func(room string) string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte("|updateuser| Guest 1|0|1|{}\n|challstr|4|abc"))
		if n <= failFirst {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		room := strings.TrimPrefix(string(msg), "|/join ")
		conn.WriteMessage(websocket.TextMessage, []byte(reply(room)))
		// hold the connection until the client closes it
		conn.ReadMessage()
	}))
	t.Cleanup(server.Close)
	return server, &conns
}

func newFinder(server *httptest.Server, retries int) *WebsocketFinder {
	cfg := &config.PresenceConfig{
		Retries:    retries,
		RetryDelay: time.Millisecond,
		Wait:       2 * time.Second,
	}
	return NewWebsocketFinder("ws"+strings.TrimPrefix(server.URL, "http"), cfg, logger.NewTestLogger())
}

func TestUsersInRoom(t *testing.T) {
	server, _ := fakeServer(t, 0, func(room string) string {
		return ">" + room + "\n|init|chat\n|users|3, Alice,@Bob@!,+Carol"
	})

	users := newFinder(server, 7).UsersInRoom(context.Background(), "Overused")
	assert.Equal(t, []string{"alice", "bob", "carol"}, users)
}

func TestUsersOnlineJoinsLobby(t *testing.T) {
	var joined atomic.Value
	server, _ := fakeServer(t, 0, func(room string) string {
		joined.Store(room)
		return ">lobby\n|users|1, Dana"
	})

	users := newFinder(server, 1).UsersOnline(context.Background())
	assert.Equal(t, []string{"dana"}, users)
	assert.Equal(t, LobbyRoom, joined.Load())
}

func TestUsersInRoomRetriesHandshake(t *testing.T) {
	server, conns := fakeServer(t, 2, func(room string) string {
		return "|users|1, Eve"
	})

	users := newFinder(server, 7).UsersInRoom(context.Background(), "lobby")
	assert.Equal(t, []string{"eve"}, users)
	assert.Equal(t, int32(3), conns.Load())
}

func TestUsersInRoomGivesUp(t *testing.T) {
	server, conns := fakeServer(t, 100, func(room string) string { return "" })

	users := newFinder(server, 3).UsersInRoom(context.Background(), "lobby")
	assert.NotNil(t, users)
	assert.Empty(t, users)
	assert.Equal(t, int32(3), conns.Load())
}

func TestUsersInRoomMissingRoomNotRetried(t *testing.T) {
	server, conns := fakeServer(t, 0, func(room string) string {
		return ">" + room + "\n|noinit|nonexistent|The room does not exist."
	})

	users := newFinder(server, 7).UsersInRoom(context.Background(), "nowhere")
	assert.Empty(t, users)
	assert.Equal(t, int32(1), conns.Load())
}

func TestUsersInRoomUnreachable(t *testing.T) {
	finder := NewWebsocketFinder("ws://127.0.0.1:1/showdown/websocket", &config.PresenceConfig{
		Retries:    2,
		RetryDelay: time.Millisecond,
		Wait:       time.Second,
	}, logger.NewTestLogger())

	assert.Empty(t, finder.UsersInRoom(context.Background(), "lobby"))
}
