package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/puzzlepop/puzzle-server-go/internal/scheduler"
)

var (
	_ scheduler.RecordSink = (*RecordRepository)(nil)
	_ scheduler.RecordSink = (*LogSink)(nil)
)

func TestLogSink_SaveRecord(t *testing.T) {
	sink := NewLogSink(zaptest.NewLogger(t))

	err := sink.SaveRecord(context.Background(), scheduler.Record{
		GameID:          "room-1",
		GameName:        "Alpha",
		GameType:        "BATTLE",
		PlayerID:        "u1",
		DurationSeconds: 300,
		FinishedAt:      time.Now(),
	})
	assert.NoError(t, err)
}
