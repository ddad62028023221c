package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/puzzlepop/puzzle-server-go/internal/game"
)

// RoomController exposes the room registry over REST.
type RoomController struct {
	manager *game.Manager
	hub     *Hub
	logger  *zap.Logger
}

// NewRoomController creates the REST surface over the registry and hub.
func NewRoomController(manager *game.Manager, hub *Hub, logger *zap.Logger) *RoomController {
	return &RoomController{
		manager: manager,
		hub:     hub,
		logger:  logger,
	}
}

// Routes builds the full HTTP handler, REST endpoints plus the websocket
// entry point.
func (c *RoomController) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/game/rooms", c.listRooms).Methods(http.MethodGet)
	r.HandleFunc("/game/room", c.createRoom).Methods(http.MethodPost)
	r.HandleFunc("/game/room/{roomId}", c.roomInfo).Methods(http.MethodGet)
	r.HandleFunc("/ws", c.hub.ServeWS)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateRoomRequest is the body of POST /game/room.
type CreateRoomRequest struct {
	Name     string `json:"name"`
	UserID   string `json:"userId"`
	GameType string `json:"gameType,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// listRooms returns every room snapshot, most recently created first.
func (c *RoomController) listRooms(w http.ResponseWriter, r *http.Request) {
	games := c.manager.ListGames(true)
	snapshots := make([]game.GameSnapshot, 0, len(games))
	for _, g := range games {
		snapshots = append(snapshots, g.Snapshot())
	}
	c.writeJSON(w, http.StatusOK, snapshots)
}

func (c *RoomController) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.Name == "" || req.UserID == "" {
		c.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name and userId are required"})
		return
	}

	g := c.manager.CreateGame(req.Name, req.UserID, game.ParseGameType(req.GameType))
	c.logger.Info("room created",
		zap.String("room_id", g.ID()),
		zap.String("name", g.Name()),
		zap.String("admin", req.UserID),
	)
	c.writeJSON(w, http.StatusCreated, g.Snapshot())
}

func (c *RoomController) roomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	g, ok := c.manager.GetGame(roomID)
	if !ok {
		c.writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}
	c.writeJSON(w, http.StatusOK, g.Snapshot())
}

func (c *RoomController) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
