package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/puzzlepop/puzzle-server-go/internal/game"
	"github.com/puzzlepop/puzzle-server-go/internal/puzzle"
)

// MessageType classifies inbound websocket messages.
type MessageType string

const (
	TypeEnter   MessageType = "ENTER"
	TypeChat    MessageType = "CHAT"
	TypeCommand MessageType = "COMMAND"
)

// Command literals carried in the Message field of COMMAND messages.
const (
	CommandGameStart  = "GAME_START"
	CommandGameInfo   = "GAME_INFO"
	CommandAddPiece   = "ADD_PIECE"
	CommandChangeTeam = "CHANGE_TEAM"
	commandUseItem    = "USE_ITEM:"
)

// GameMessage is the inbound wire format for all websocket traffic.
type GameMessage struct {
	Type    MessageType `json:"type"`
	RoomID  string      `json:"roomId"`
	Sender  string      `json:"sender"`
	Message string      `json:"message"`
	Targets string      `json:"targets,omitempty"`
}

// ChatPayload echoes a chat line back to the room.
type ChatPayload struct {
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorNotice reports a rejected action to the client.
type ErrorNotice struct {
	Context string `json:"context"`
	Message string `json:"message"`
}

// ActionPayload broadcasts the outcome of a board mutation together with a
// fresh game snapshot so every subscriber converges on the same state.
type ActionPayload struct {
	Message string             `json:"message"`
	Sender  string             `json:"sender"`
	Result  any                `json:"result,omitempty"`
	Game    *game.GameSnapshot `json:"game"`
}

// RoomNotifier is the outbound half of the transport the router needs.
type RoomNotifier interface {
	JoinRoom(sessionID, roomID string)
	BroadcastToRoom(roomID string, payload any)
	SendToSession(sessionID string, payload any)
}

// Router dispatches inbound game messages to the room registry and game
// model, and pushes results back out through the notifier.
type Router struct {
	manager  *game.Manager
	notifier RoomNotifier
	boardCfg game.BoardConfig
	logger   *zap.Logger
}

// NewRouter creates a message router over the given registry and notifier.
func NewRouter(manager *game.Manager, notifier RoomNotifier, boardCfg game.BoardConfig, logger *zap.Logger) *Router {
	return &Router{
		manager:  manager,
		notifier: notifier,
		boardCfg: boardCfg,
		logger:   logger,
	}
}

// HandleMessage routes one inbound message from a session.
func (r *Router) HandleMessage(sessionID string, msg GameMessage) {
	switch msg.Type {
	case TypeEnter:
		r.handleEnter(sessionID, msg)
	case TypeChat:
		r.handleChat(msg)
	case TypeCommand:
		r.handleCommand(sessionID, msg)
	default:
		r.notifier.SendToSession(sessionID, ErrorNotice{
			Context: "message",
			Message: "unknown message type",
		})
	}
}

// HandleDisconnect forwards a dropped session to the registry's grace logic
// and tells the remaining subscribers who left.
func (r *Router) HandleDisconnect(sessionID string) {
	roomID, playerID, err := r.manager.HandleDisconnect(sessionID)
	if err != nil {
		// Sessions that never entered a room disconnect without ceremony.
		r.logger.Debug("disconnect without room binding",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}
	r.broadcastSnapshot(roomID, playerID, "EXIT")
}

func (r *Router) handleEnter(sessionID string, msg GameMessage) {
	r.notifier.JoinRoom(sessionID, msg.RoomID)

	g, err := r.manager.EnterGame(msg.RoomID, msg.Sender, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrRoomNotFound):
			r.logger.Warn("enter for unknown room",
				zap.String("room_id", msg.RoomID),
				zap.String("player_id", msg.Sender),
			)
			r.notifier.SendToSession(sessionID, ErrorNotice{
				Context: "room",
				Message: "room not found",
			})
		case errors.Is(err, game.ErrRoomFull):
			// Capacity rejections go to the whole room so seated players
			// see the failed join too.
			r.notifier.BroadcastToRoom(msg.RoomID, ErrorNotice{
				Context: "room",
				Message: "room is full",
			})
		default:
			r.notifier.SendToSession(sessionID, ErrorNotice{
				Context: "room",
				Message: err.Error(),
			})
		}
		return
	}

	r.logger.Info("player entered room",
		zap.String("room_id", msg.RoomID),
		zap.String("player_id", msg.Sender),
	)
	r.notifier.BroadcastToRoom(msg.RoomID, ActionPayload{
		Message: string(TypeEnter),
		Sender:  msg.Sender,
		Game:    snapshotOf(g),
	})
}

func (r *Router) handleChat(msg GameMessage) {
	r.notifier.BroadcastToRoom(msg.RoomID, ChatPayload{
		Message:   msg.Message,
		Sender:    msg.Sender,
		Timestamp: time.Now(),
	})
}

func (r *Router) handleCommand(sessionID string, msg GameMessage) {
	g, ok := r.manager.GetGame(msg.RoomID)
	if !ok {
		r.notifier.SendToSession(sessionID, ErrorNotice{
			Context: "room",
			Message: "room not found",
		})
		return
	}

	switch {
	case msg.Message == CommandGameStart:
		if err := g.Start(r.boardCfg); err != nil {
			r.notifier.SendToSession(sessionID, ErrorNotice{
				Context: "command",
				Message: err.Error(),
			})
			return
		}
		r.logger.Info("game started",
			zap.String("room_id", msg.RoomID),
			zap.String("player_id", msg.Sender),
		)
		r.broadcastSnapshot(msg.RoomID, msg.Sender, CommandGameStart)

	case msg.Message == CommandGameInfo:
		r.broadcastSnapshot(msg.RoomID, msg.Sender, CommandGameInfo)

	case msg.Message == CommandChangeTeam:
		if err := g.ChangeTeam(msg.Sender); err != nil {
			r.rejectCommand(sessionID, msg, err)
			return
		}
		r.broadcastSnapshot(msg.RoomID, msg.Sender, CommandChangeTeam)

	case msg.Message == CommandAddPiece:
		r.handleAddPiece(sessionID, g, msg)

	case strings.HasPrefix(msg.Message, commandUseItem):
		r.handleUseItem(sessionID, g, msg)

	default:
		r.notifier.SendToSession(sessionID, ErrorNotice{
			Context: "command",
			Message: "unknown command",
		})
	}
}

func (r *Router) handleAddPiece(sessionID string, g *game.Game, msg GameMessage) {
	indices, err := parseIndices(msg.Targets)
	if err != nil {
		r.notifier.SendToSession(sessionID, ErrorNotice{
			Context: "command",
			Message: "malformed piece indices",
		})
		return
	}

	result, err := g.AddPieces(msg.Sender, indices)
	if err != nil {
		r.rejectCommand(sessionID, msg, err)
		return
	}

	r.notifier.BroadcastToRoom(msg.RoomID, ActionPayload{
		Message: CommandAddPiece,
		Sender:  msg.Sender,
		Result:  result,
		Game:    snapshotOf(g),
	})
}

func (r *Router) handleUseItem(sessionID string, g *game.Game, msg GameMessage) {
	arg := strings.TrimPrefix(msg.Message, commandUseItem)

	var (
		result puzzle.EffectResult
		err    error
	)
	if number, convErr := strconv.Atoi(arg); convErr == nil {
		item, ok := puzzle.ItemByNumber(number)
		if !ok {
			r.notifier.SendToSession(sessionID, ErrorNotice{
				Context: "command",
				Message: "unknown item number",
			})
			return
		}
		result, err = g.UseItem(msg.Sender, item)
	} else {
		// Non-numeric argument is a drop id.
		result, err = g.ConsumeDrop(msg.Sender, arg)
	}
	if err != nil {
		r.rejectCommand(sessionID, msg, err)
		return
	}

	r.notifier.BroadcastToRoom(msg.RoomID, ActionPayload{
		Message: "USE_ITEM",
		Sender:  msg.Sender,
		Result:  result,
		Game:    snapshotOf(g),
	})
}

// rejectCommand applies the error policy: commands against an unstarted game
// are dropped with a log line only, everything else gets an error notice back
// to the sender.
func (r *Router) rejectCommand(sessionID string, msg GameMessage, err error) {
	if errors.Is(err, game.ErrNotStarted) {
		r.logger.Warn("command before game start dropped",
			zap.String("room_id", msg.RoomID),
			zap.String("player_id", msg.Sender),
			zap.String("command", msg.Message),
		)
		return
	}
	r.notifier.SendToSession(sessionID, ErrorNotice{
		Context: "command",
		Message: err.Error(),
	})
}

func (r *Router) broadcastSnapshot(roomID, sender, message string) {
	g, ok := r.manager.GetGame(roomID)
	if !ok {
		return
	}
	r.notifier.BroadcastToRoom(roomID, ActionPayload{
		Message: message,
		Sender:  sender,
		Game:    snapshotOf(g),
	})
}

func snapshotOf(g *game.Game) *game.GameSnapshot {
	snap := g.Snapshot()
	return &snap
}

func parseIndices(targets string) ([]int, error) {
	parts := strings.Split(targets, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		indices = append(indices, n)
	}
	return indices, nil
}
