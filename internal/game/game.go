package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/puzzlepop/puzzle-server-go/internal/puzzle"
)

// BoardConfig fixes the shared source picture and the piece grid every board
// of a game is cut from.
type BoardConfig struct {
	Picture     puzzle.Picture
	WidthCount  int
	LengthCount int
}

// Game is one puzzle room: up to two teams, their boards once started, the
// session bindings used for disconnect handling and the drop items currently
// in play.
//
// All mutable state is guarded by one RWMutex per game; inbound actions and
// scheduler reads take the same guard, so different rooms proceed in parallel
// while each room sees at most one in-flight mutation.
type Game struct {
	mu sync.RWMutex

	id       string
	name     string
	gameType GameType
	adminID  string

	red  *Team
	blue *Team // nil for solo games

	started   bool
	startTime time.Time

	sessions map[string]string // session id -> player id
	drops    map[string]puzzle.DropItem
}

// NewGame allocates an empty room with the admin seated on the red team.
func NewGame(name, adminID string, gameType GameType) *Game {
	g := &Game{
		id:       uuid.New().String(),
		name:     name,
		gameType: gameType,
		adminID:  adminID,
		red:      newTeam(),
		sessions: make(map[string]string),
		drops:    make(map[string]puzzle.DropItem),
	}
	if gameType != GameTypeSolo {
		g.blue = newTeam()
	}
	g.red.addPlayer(adminID)
	return g
}

// ID returns the room id.
func (g *Game) ID() string { return g.id }

// Name returns the room's display name.
func (g *Game) Name() string { return g.name }

// Type returns the game variant.
func (g *Game) Type() GameType { return g.gameType }

// AdminID returns the creating player's id.
func (g *Game) AdminID() string { return g.adminID }

// EnterPlayer seats the player, preferring the red team and falling back to
// blue, and records the session binding for disconnect handling. A player who
// is already seated is only rebound to the new session (reconnect-as-refresh).
// With both teams full it returns ErrRoomFull and changes nothing.
func (g *Game) EnterPlayer(playerID, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.teamOf(playerID) != nil {
		g.sessions[sessionID] = playerID
		return nil
	}

	if !g.red.addPlayer(playerID) {
		if g.blue == nil || !g.blue.addPlayer(playerID) {
			return fmt.Errorf("%w: %s", ErrRoomFull, g.id)
		}
	}
	g.sessions[sessionID] = playerID
	return nil
}

// ChangeTeam moves the player to the other team, appending at the end of the
// destination roster.
func (g *Game) ChangeTeam(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.blue == nil {
		return fmt.Errorf("game: solo room has no second team")
	}

	var from, to *Team
	switch {
	case g.red.Contains(playerID):
		from, to = g.red, g.blue
	case g.blue.Contains(playerID):
		from, to = g.blue, g.red
	default:
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}

	if !to.HasRoom() {
		return fmt.Errorf("%w: destination team", ErrRoomFull)
	}
	from.removePlayer(playerID)
	to.addPlayer(playerID)
	return nil
}

// ExitPlayer removes the player bound to the session from whichever team
// holds them. It does not delete the game; emptiness handling belongs to the
// registry.
func (g *Game) ExitPlayer(sessionID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	playerID, ok := g.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(g.sessions, sessionID)

	if team := g.teamOf(playerID); team != nil {
		team.removePlayer(playerID)
	}
	return playerID, nil
}

// Start allocates every team's board from the shared source picture, marks
// the game started and records the start time. Starting an already-started
// game is a no-op, so handlers can call it to "ensure started".
func (g *Game) Start(cfg BoardConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return nil
	}

	board, err := puzzle.NewBoard(cfg.Picture, cfg.WidthCount, cfg.LengthCount)
	if err != nil {
		return err
	}
	g.red.board = board

	if g.blue != nil {
		board, err = puzzle.NewBoard(cfg.Picture, cfg.WidthCount, cfg.LengthCount)
		if err != nil {
			return err
		}
		g.blue.board = board
	}

	g.started = true
	g.startTime = time.Now()
	return nil
}

// Started reports whether Start has run.
func (g *Game) Started() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.started
}

// ElapsedSeconds returns whole seconds since the game started, failing
// explicitly before Start.
func (g *Game) ElapsedSeconds() (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.started {
		return 0, fmt.Errorf("%w: %s", ErrNotStarted, g.id)
	}
	return int64(time.Since(g.startTime) / time.Second), nil
}

// IsEmpty reports whether no team seats any player.
func (g *Game) IsEmpty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isEmptyLocked()
}

func (g *Game) isEmptyLocked() bool {
	if g.red.Size() > 0 {
		return false
	}
	return g.blue == nil || g.blue.Size() == 0
}

// AddPieces submits a match attempt against the sender's board.
func (g *Game) AddPieces(playerID string, indices []int) (puzzle.MatchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	board, err := g.boardOfLocked(playerID)
	if err != nil {
		return puzzle.MatchResult{}, err
	}
	return board.AddPieces(indices)
}

// UseItem applies an item effect to the sender's board.
func (g *Game) UseItem(playerID string, item puzzle.ItemType) (puzzle.EffectResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	board, err := g.boardOfLocked(playerID)
	if err != nil {
		return puzzle.EffectResult{}, err
	}
	return board.UseItem(item)
}

// AddDrop stores a spawned drop item until a player consumes it or the game
// ends.
func (g *Game) AddDrop(item puzzle.DropItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drops[item.ID] = item
}

// ConsumeDrop applies a stored drop's effect to the consuming player's board
// and removes the drop.
func (g *Game) ConsumeDrop(playerID, dropID string) (puzzle.EffectResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	drop, ok := g.drops[dropID]
	if !ok {
		return puzzle.EffectResult{}, fmt.Errorf("%w: %s", ErrDropNotFound, dropID)
	}

	board, err := g.boardOfLocked(playerID)
	if err != nil {
		return puzzle.EffectResult{}, err
	}

	res, err := board.UseItem(drop.Type)
	if err != nil {
		return puzzle.EffectResult{}, err
	}
	delete(g.drops, dropID)
	return res, nil
}

// boardOfLocked resolves the board the player acts on. Callers hold g.mu.
func (g *Game) boardOfLocked(playerID string) (*puzzle.Board, error) {
	if !g.started {
		return nil, fmt.Errorf("%w: %s", ErrNotStarted, g.id)
	}
	team := g.teamOf(playerID)
	if team == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return team.Board(), nil
}

// teamOf returns the team seating the player, or nil. Callers hold g.mu.
func (g *Game) teamOf(playerID string) *Team {
	if g.red.Contains(playerID) {
		return g.red
	}
	if g.blue != nil && g.blue.Contains(playerID) {
		return g.blue
	}
	return nil
}

// GameSnapshot captures a consistent view of a room for broadcast. Snapshots
// are taken under the same guard mutations hold, so a broadcast always
// reflects the state after its triggering action completed.
type GameSnapshot struct {
	ID        string            `json:"gameId"`
	Name      string            `json:"gameName"`
	Type      GameType          `json:"gameType"`
	AdminID   string            `json:"admin"`
	Started   bool              `json:"isStarted"`
	StartTime *time.Time        `json:"startTime,omitempty"`
	RedTeam   TeamSnapshot      `json:"redTeam"`
	BlueTeam  *TeamSnapshot     `json:"blueTeam,omitempty"`
	Drops     []puzzle.DropItem `json:"dropItems"`
}

// Snapshot returns a consistent copy of the room state.
func (g *Game) Snapshot() GameSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := GameSnapshot{
		ID:      g.id,
		Name:    g.name,
		Type:    g.gameType,
		AdminID: g.adminID,
		Started: g.started,
		RedTeam: g.red.snapshot(),
		Drops:   make([]puzzle.DropItem, 0, len(g.drops)),
	}
	if g.started {
		start := g.startTime
		snap.StartTime = &start
	}
	if g.blue != nil {
		bs := g.blue.snapshot()
		snap.BlueTeam = &bs
	}
	for _, d := range g.drops {
		snap.Drops = append(snap.Drops, d)
	}
	return snap
}
