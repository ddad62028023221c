package game

import "github.com/puzzlepop/puzzle-server-go/internal/puzzle"

// TeamCapacity is the seat limit per team.
const TeamCapacity = 4

// Team is an insertion-ordered roster of players bound to at most one board.
// Team is not goroutine safe; the owning game's lock serializes access.
type Team struct {
	players []string
	board   *puzzle.Board
}

func newTeam() *Team {
	return &Team{players: make([]string, 0, TeamCapacity)}
}

// HasRoom reports whether the team can seat another player.
func (t *Team) HasRoom() bool {
	return len(t.players) < TeamCapacity
}

// Contains reports whether the player is seated on this team.
func (t *Team) Contains(playerID string) bool {
	for _, p := range t.players {
		if p == playerID {
			return true
		}
	}
	return false
}

// addPlayer seats the player at the end of the roster.
func (t *Team) addPlayer(playerID string) bool {
	if !t.HasRoom() {
		return false
	}
	t.players = append(t.players, playerID)
	return true
}

// removePlayer unseats the player, preserving the order of the rest.
func (t *Team) removePlayer(playerID string) bool {
	for i, p := range t.players {
		if p == playerID {
			t.players = append(t.players[:i], t.players[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of seated players.
func (t *Team) Size() int { return len(t.players) }

// Players returns the roster in seating order.
func (t *Team) Players() []string {
	out := make([]string, len(t.players))
	copy(out, t.players)
	return out
}

// Board returns the team's puzzle board, nil before the game starts.
func (t *Team) Board() *puzzle.Board { return t.board }

// TeamSnapshot captures a team for broadcast.
type TeamSnapshot struct {
	Players []string              `json:"players"`
	Board   *puzzle.BoardSnapshot `json:"board,omitempty"`
}

func (t *Team) snapshot() TeamSnapshot {
	snap := TeamSnapshot{Players: t.Players()}
	if t.board != nil {
		bs := t.board.Snapshot()
		snap.Board = &bs
	}
	return snap
}
