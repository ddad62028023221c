package scheduler

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/puzzlepop/puzzle-server-go/internal/game"
	"github.com/puzzlepop/puzzle-server-go/internal/puzzle"
)

// timeTickInterval is the fixed rate of the remaining-time broadcast loop.
const timeTickInterval = time.Second

// TerminationNotice is the string broadcast to a room whose timer ran out,
// immediately before the room is deleted.
const TerminationNotice = "GAME_OVER"

// Broadcaster pushes a payload to every subscriber of a room topic.
type Broadcaster interface {
	BroadcastToRoom(roomID string, payload any)
}

// Record is one finished-game row handed to the record sink.
type Record struct {
	GameID          string
	GameName        string
	GameType        string
	PlayerID        string
	DurationSeconds int64
	FinishedAt      time.Time
}

// RecordSink persists match records for finished games. Persistence is a
// collaborator concern; the engine only needs this port.
type RecordSink interface {
	SaveRecord(ctx context.Context, rec Record) error
}

// Config carries the scheduler tunables.
type Config struct {
	BattleDuration  time.Duration
	DropInterval    time.Duration
	DropProbability int // percent chance per drop tick per room
}

// TimePayload is the per-second time broadcast: remaining seconds for timed
// modes, elapsed seconds otherwise.
type TimePayload struct {
	Message string `json:"message"`
	Seconds int64  `json:"seconds"`
}

// DropPayload announces a spawned drop item to a room.
type DropPayload struct {
	Message string          `json:"message"`
	Item    puzzle.DropItem `json:"randomItem"`
}

// Scheduler drives the two fixed-rate broadcast loops: the 1-second time tick
// and the slower random item-drop tick. Each room is processed in isolation;
// one room's failure never aborts the tick for the others.
type Scheduler struct {
	manager *game.Manager
	bc      Broadcaster
	records RecordSink
	cfg     Config
	logger  *zap.Logger
}

// New creates a scheduler. records may be nil when persistence is disabled.
func New(manager *game.Manager, bc Broadcaster, records RecordSink, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		manager: manager,
		bc:      bc,
		records: records,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run blocks until the context is cancelled, driving both tick loops.
func (s *Scheduler) Run(ctx context.Context) {
	timeTicker := time.NewTicker(timeTickInterval)
	defer timeTicker.Stop()
	dropTicker := time.NewTicker(s.cfg.DropInterval)
	defer dropTicker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("time_tick", timeTickInterval),
		zap.Duration("drop_interval", s.cfg.DropInterval),
		zap.Int("drop_probability", s.cfg.DropProbability),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-timeTicker.C:
			s.tickTime(ctx)
		case <-dropTicker.C:
			s.tickDrops()
		}
	}
}

// tickTime broadcasts the time value to every started room and tears down
// rooms whose timer ran out.
func (s *Scheduler) tickTime(ctx context.Context) {
	for _, g := range s.manager.StartedGames() {
		s.withRoomIsolation(g.ID(), func() {
			elapsed, err := g.ElapsedSeconds()
			if err != nil {
				// Started flipped between listing and reading; skip this round.
				return
			}

			if !g.Type().Timed() {
				s.bc.BroadcastToRoom(g.ID(), TimePayload{Message: "TIME", Seconds: elapsed})
				return
			}

			remaining := int64(s.cfg.BattleDuration/time.Second) - elapsed
			if remaining >= 0 {
				s.bc.BroadcastToRoom(g.ID(), TimePayload{Message: "TIME", Seconds: remaining})
				return
			}

			s.logger.Info("game timer expired",
				zap.String("room_id", g.ID()),
				zap.Int64("elapsed", elapsed),
			)
			s.bc.BroadcastToRoom(g.ID(), TerminationNotice)
			s.saveRecords(ctx, g, elapsed)
			s.manager.RemoveGame(g.ID())
		})
	}
}

// tickDrops rolls the drop probability once per started room and spawns a
// weighted random item on success.
func (s *Scheduler) tickDrops() {
	for _, g := range s.manager.StartedGames() {
		s.withRoomIsolation(g.ID(), func() {
			if rand.IntN(100) >= s.cfg.DropProbability {
				return
			}
			item := puzzle.RandomDrop()
			g.AddDrop(item)
			s.bc.BroadcastToRoom(g.ID(), DropPayload{Message: "DROP_ITEM", Item: item})
			s.logger.Debug("drop item spawned",
				zap.String("room_id", g.ID()),
				zap.String("drop_id", item.ID),
				zap.Stringer("item", item.Type),
			)
		})
	}
}

// saveRecords writes one record per seated player of a finished game.
func (s *Scheduler) saveRecords(ctx context.Context, g *game.Game, elapsed int64) {
	if s.records == nil {
		return
	}

	snap := g.Snapshot()
	players := append([]string{}, snap.RedTeam.Players...)
	if snap.BlueTeam != nil {
		players = append(players, snap.BlueTeam.Players...)
	}

	now := time.Now()
	for _, playerID := range players {
		rec := Record{
			GameID:          snap.ID,
			GameName:        snap.Name,
			GameType:        snap.Type.String(),
			PlayerID:        playerID,
			DurationSeconds: elapsed,
			FinishedAt:      now,
		}
		if err := s.records.SaveRecord(ctx, rec); err != nil {
			s.logger.Warn("failed to save match record",
				zap.String("room_id", snap.ID),
				zap.String("player", playerID),
				zap.Error(err),
			)
		}
	}
}

// withRoomIsolation shields the tick loop from a panic while processing one
// room.
func (s *Scheduler) withRoomIsolation(roomID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("room tick panicked",
				zap.String("room_id", roomID),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
