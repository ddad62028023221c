package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// joinOnEnter subscribes sessions to the requested room and records
// disconnects, standing in for the full router.
type joinOnEnter struct {
	hub *Hub

	mu            sync.Mutex
	disconnected  []string
	lastSessionID string
}

func (j *joinOnEnter) HandleMessage(sessionID string, msg GameMessage) {
	j.mu.Lock()
	j.lastSessionID = sessionID
	j.mu.Unlock()
	if msg.Type == TypeEnter {
		j.hub.JoinRoom(sessionID, msg.RoomID)
	}
}

func (j *joinOnEnter) HandleDisconnect(sessionID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.disconnected = append(j.disconnected, sessionID)
}

func wsServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(hub.ServeWS))
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func enterRoom(t *testing.T, conn *websocket.Conn, roomID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(GameMessage{Type: TypeEnter, RoomID: roomID}))
}

func TestHub_BroadcastReachesRoomSubscribersOnly(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(logger)
	handler := &joinOnEnter{hub: hub}
	hub.SetHandler(handler)

	srv := wsServer(hub)
	defer srv.Close()

	inRoom := dialWS(t, srv.URL)
	other := dialWS(t, srv.URL)
	enterRoom(t, inRoom, "r1")
	enterRoom(t, other, "r2")

	// Subscriptions are applied by the read pumps.
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms["r1"]) == 1 && len(hub.rooms["r2"]) == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToRoom("r1", ChatPayload{Message: "hello", Sender: "u1"})

	inRoom.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := inRoom.ReadMessage()
	require.NoError(t, err)

	var chat ChatPayload
	require.NoError(t, json.Unmarshal(data, &chat))
	assert.Equal(t, "hello", chat.Message)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_DisconnectNotifiesHandler(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(logger)
	handler := &joinOnEnter{hub: hub}
	hub.SetHandler(handler)

	srv := wsServer(hub)
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	enterRoom(t, conn, "r1")

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms["r1"]) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.disconnected) == 1
	}, time.Second, 10*time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.rooms["r1"])
	assert.Empty(t, hub.sessions)
}

func TestHub_MalformedMessageGetsNotice(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(logger)
	hub.SetHandler(&joinOnEnter{hub: hub})

	srv := wsServer(hub)
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var notice ErrorNotice
	require.NoError(t, json.Unmarshal(data, &notice))
	assert.Equal(t, "message", notice.Context)
}
