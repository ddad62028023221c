package game

import "errors"

// The error taxonomy the action layer dispatches on. Validation failures from
// the board itself surface as puzzle.ErrInvalidIndex and pass through
// unchanged; everything here covers room and membership state.
var (
	// ErrRoomFull means both teams are at capacity; surfaced to the room as
	// an error notice, state unchanged.
	ErrRoomFull = errors.New("game: room is full")

	// ErrRoomNotFound means the registry holds no game with the given id.
	ErrRoomNotFound = errors.New("game: room not found")

	// ErrNotStarted rejects board-mutating actions against an unstarted game.
	// The action layer drops these with a log line rather than replying.
	ErrNotStarted = errors.New("game: game not started")

	// ErrPlayerNotFound means no team in the game seats the player.
	ErrPlayerNotFound = errors.New("game: player not found in game")

	// ErrSessionNotFound means the session id has no recorded binding.
	ErrSessionNotFound = errors.New("game: session not bound to a player")

	// ErrDropNotFound means the referenced drop item is unknown or consumed.
	ErrDropNotFound = errors.New("game: drop item not found")
)
