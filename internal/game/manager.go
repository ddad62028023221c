package game

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager is the process-scoped registry of active rooms. It owns every Game
// by id, tracks which room each live session is bound to, and debounces the
// deletion of emptied rooms behind a grace window so a reconnect-as-refresh
// does not tear the room down.
type Manager struct {
	mu       sync.RWMutex
	games    map[string]*Game
	order    []string          // room ids in creation order
	sessions map[string]string // session id -> room id
	pending  map[string]*time.Timer

	grace  time.Duration
	logger *zap.Logger
}

// NewManager creates a room registry with the given disconnect grace window.
func NewManager(grace time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		games:    make(map[string]*Game),
		sessions: make(map[string]string),
		pending:  make(map[string]*time.Timer),
		grace:    grace,
		logger:   logger,
	}
}

// CreateGame allocates a room seeded with the admin and registers it.
func (m *Manager) CreateGame(name, adminID string, gameType GameType) *Game {
	g := NewGame(name, adminID, gameType)

	m.mu.Lock()
	m.games[g.ID()] = g
	m.order = append(m.order, g.ID())
	m.mu.Unlock()

	m.logger.Info("room created",
		zap.String("room_id", g.ID()),
		zap.String("name", name),
		zap.String("admin", adminID),
		zap.Stringer("type", gameType),
	)
	return g
}

// GetGame retrieves a room by id.
func (m *Manager) GetGame(roomID string) (*Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[roomID]
	return g, ok
}

// RemoveGame deletes the room and cancels any pending deferred deletion.
func (m *Manager) RemoveGame(roomID string) {
	m.mu.Lock()
	if timer, ok := m.pending[roomID]; ok {
		timer.Stop()
		delete(m.pending, roomID)
	}
	if _, ok := m.games[roomID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.games, roomID)
	for i, id := range m.order {
		if id == roomID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.logger.Info("room removed", zap.String("room_id", roomID))
}

// ListGames returns the rooms in creation order; mostRecentFirst reverses it
// for display.
func (m *Manager) ListGames(mostRecentFirst bool) []*Game {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Game, 0, len(m.order))
	for _, id := range m.order {
		if g, ok := m.games[id]; ok {
			out = append(out, g)
		}
	}
	if mostRecentFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// StartedGames returns every room whose game has started, in creation order.
func (m *Manager) StartedGames() []*Game {
	all := m.ListGames(false)
	out := all[:0]
	for _, g := range all {
		if g.Started() {
			out = append(out, g)
		}
	}
	return out
}

// EnterGame seats the player in the room and binds the session. Entering
// cancels any deferred deletion pending against the room, which is how a
// refreshing client keeps its room alive through the grace window.
func (m *Manager) EnterGame(roomID, playerID, sessionID string) (*Game, error) {
	g, ok := m.GetGame(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	if err := g.EnterPlayer(playerID, sessionID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sessionID] = roomID
	if timer, ok := m.pending[roomID]; ok {
		timer.Stop()
		delete(m.pending, roomID)
		m.logger.Info("pending room deletion cancelled by rejoin",
			zap.String("room_id", roomID),
			zap.String("player", playerID),
		)
	}
	m.mu.Unlock()

	return g, nil
}

// ResolveSession returns the room a session is bound to.
func (m *Manager) ResolveSession(sessionID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.sessions[sessionID]
	return roomID, ok
}

// HandleDisconnect removes the player bound to the lost session from their
// room. If the room is left empty, its deletion is deferred by the grace
// window; the timer re-checks emptiness when it fires, and a rejoin in the
// meantime cancels it. The wait never holds a lock, so other players keep
// acting during the window.
func (m *Manager) HandleDisconnect(sessionID string) (roomID, playerID string, err error) {
	m.mu.Lock()
	roomID, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return "", "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	g, ok := m.GetGame(roomID)
	if !ok {
		return roomID, "", fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	playerID, err = g.ExitPlayer(sessionID)
	if err != nil {
		return roomID, "", err
	}

	m.logger.Info("player left on disconnect",
		zap.String("room_id", roomID),
		zap.String("player", playerID),
	)

	if g.IsEmpty() {
		m.scheduleDeletion(roomID)
	}
	return roomID, playerID, nil
}

// scheduleDeletion arms the deferred deletion of an emptied room.
func (m *Manager) scheduleDeletion(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[roomID]; ok {
		return
	}

	m.logger.Info("room emptied, deletion deferred",
		zap.String("room_id", roomID),
		zap.Duration("grace", m.grace),
	)

	m.pending[roomID] = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		delete(m.pending, roomID)
		g, ok := m.games[roomID]
		m.mu.Unlock()
		if !ok {
			return
		}
		if !g.IsEmpty() {
			m.logger.Info("room repopulated during grace window",
				zap.String("room_id", roomID))
			return
		}
		m.RemoveGame(roomID)
	})
}
