// Package repository persists finished-match records in PostgreSQL. The game
// engine only sees the scheduler's record sink port; everything SQL-shaped
// lives here.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/puzzlepop/puzzle-server-go/internal/scheduler"
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS match_records (
	id               BIGSERIAL PRIMARY KEY,
	game_id          TEXT        NOT NULL,
	game_name        TEXT        NOT NULL,
	game_type        TEXT        NOT NULL,
	player_id        TEXT        NOT NULL,
	duration_seconds BIGINT      NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_records_player ON match_records (player_id);
`

// NewPool connects a pgx pool to the given DSN and verifies the connection.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// RecordRepository stores match records in the match_records table.
type RecordRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRecordRepository wraps the pool and ensures the schema exists.
func NewRecordRepository(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*RecordRepository, error) {
	if _, err := pool.Exec(ctx, recordsSchema); err != nil {
		return nil, fmt.Errorf("ensure match_records schema: %w", err)
	}
	return &RecordRepository{pool: pool, logger: logger}, nil
}

// SaveRecord inserts one finished-game row.
func (r *RecordRepository) SaveRecord(ctx context.Context, rec scheduler.Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO match_records
			(game_id, game_name, game_type, player_id, duration_seconds, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.GameID, rec.GameName, rec.GameType, rec.PlayerID, rec.DurationSeconds, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}

// PlayerRecords returns a player's finished games, most recent first.
func (r *RecordRepository) PlayerRecords(ctx context.Context, playerID string, limit int) ([]scheduler.Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT game_id, game_name, game_type, player_id, duration_seconds, finished_at
		 FROM match_records
		 WHERE player_id = $1
		 ORDER BY finished_at DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query match records: %w", err)
	}
	defer rows.Close()

	var records []scheduler.Record
	for rows.Next() {
		var rec scheduler.Record
		if err := rows.Scan(
			&rec.GameID, &rec.GameName, &rec.GameType,
			&rec.PlayerID, &rec.DurationSeconds, &rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LogSink stands in for the database when no DSN is configured. Records are
// logged and discarded.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates the no-database record sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// SaveRecord logs the record instead of persisting it.
func (s *LogSink) SaveRecord(_ context.Context, rec scheduler.Record) error {
	s.logger.Info("match record",
		zap.String("room_id", rec.GameID),
		zap.String("game_name", rec.GameName),
		zap.String("game_type", rec.GameType),
		zap.String("player", rec.PlayerID),
		zap.Int64("duration_seconds", rec.DurationSeconds),
	)
	return nil
}
