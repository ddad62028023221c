package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected websocket session. Each client gets a generated
// session id used for the session-to-player binding and a buffered send
// channel drained by its write pump.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// SessionID returns the client's generated session id.
func (c *Client) SessionID() string { return c.sessionID }

// MessageHandler consumes inbound messages from a session.
type MessageHandler interface {
	HandleMessage(sessionID string, msg GameMessage)
	HandleDisconnect(sessionID string)
}

// Hub tracks connected clients and their room-topic subscriptions, and fans
// broadcast payloads out to every subscriber of a room. Slow clients are
// dropped rather than allowed to stall a broadcast.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Client
	rooms    map[string]map[*Client]struct{} // room id -> subscribers
	byClient map[*Client]string              // client -> subscribed room id

	handler MessageHandler
	logger  *zap.Logger
}

// NewHub creates an empty hub. SetHandler must run before serving traffic.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Client),
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]string),
		logger:   logger,
	}
}

// SetHandler wires the inbound message handler. The hub and the router
// reference each other, so the handler lands after construction.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

// ServeWS upgrades an HTTP request to a websocket session and starts its
// pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: uuid.New().String(),
	}

	h.mu.Lock()
	h.sessions[client.sessionID] = client
	h.mu.Unlock()

	h.logger.Debug("session connected", zap.String("session_id", client.sessionID))

	go client.writePump()
	go client.readPump()
}

// JoinRoom subscribes the session to a room topic, replacing any previous
// subscription.
func (h *Hub) JoinRoom(sessionID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if prev, ok := h.byClient[client]; ok {
		delete(h.rooms[prev], client)
		if len(h.rooms[prev]) == 0 {
			delete(h.rooms, prev)
		}
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	h.byClient[client] = roomID
}

// BroadcastToRoom sends the payload to every subscriber of the room topic.
func (h *Hub) BroadcastToRoom(roomID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode broadcast",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	for _, client := range subscribers {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping slow client",
				zap.String("session_id", client.sessionID),
				zap.String("room_id", roomID),
			)
			h.removeClient(client)
		}
	}
}

// SendToSession sends the payload to one session only.
func (h *Hub) SendToSession(sessionID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode message",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	client, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- data:
	default:
		h.removeClient(client)
	}
}

// removeClient tears the client out of the hub and notifies the handler so
// the room registry can run its disconnect logic.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, known := h.sessions[client.sessionID]
	if known {
		delete(h.sessions, client.sessionID)
		if roomID, ok := h.byClient[client]; ok {
			delete(h.rooms[roomID], client)
			if len(h.rooms[roomID]) == 0 {
				delete(h.rooms, roomID)
			}
			delete(h.byClient, client)
		}
		close(client.send)
	}
	h.mu.Unlock()

	if known {
		h.logger.Debug("session disconnected", zap.String("session_id", client.sessionID))
		if h.handler != nil {
			h.handler.HandleDisconnect(client.sessionID)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close",
					zap.String("session_id", c.sessionID),
					zap.Error(err),
				)
			}
			return
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.SendToSession(c.sessionID, ErrorNotice{
				Context: "message",
				Message: "malformed message",
			})
			continue
		}
		if c.hub.handler != nil {
			c.hub.handler.HandleMessage(c.sessionID, msg)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
