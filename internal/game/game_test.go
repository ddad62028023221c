package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puzzlepop/puzzle-server-go/internal/puzzle"
)

func testBoardConfig() BoardConfig {
	return BoardConfig{
		Picture:     puzzle.Picture{Width: 64, Length: 48, Encoded: "."},
		WidthCount:  4,
		LengthCount: 3,
	}
}

func TestNewGame_SeedsAdminOnRedTeam(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)

	assert.NotEmpty(t, g.ID())
	assert.Equal(t, "Alpha", g.Name())
	assert.Equal(t, GameTypeBattle, g.Type())
	assert.Equal(t, "u1", g.AdminID())
	assert.False(t, g.Started())

	snap := g.Snapshot()
	assert.Equal(t, []string{"u1"}, snap.RedTeam.Players)
	require.NotNil(t, snap.BlueTeam)
	assert.Empty(t, snap.BlueTeam.Players)
}

func TestNewGame_SoloHasOneTeam(t *testing.T) {
	g := NewGame("Solo", "u1", GameTypeSolo)
	snap := g.Snapshot()
	assert.Nil(t, snap.BlueTeam)
}

func TestEnterPlayer_FillsRedThenBlue(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)

	// Admin occupies one red seat; three more fill the team.
	for i := 2; i <= 4; i++ {
		require.NoError(t, g.EnterPlayer(fmt.Sprintf("u%d", i), fmt.Sprintf("s%d", i)))
	}
	snap := g.Snapshot()
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, snap.RedTeam.Players)

	// The next four overflow onto blue.
	for i := 5; i <= 8; i++ {
		require.NoError(t, g.EnterPlayer(fmt.Sprintf("u%d", i), fmt.Sprintf("s%d", i)))
	}
	snap = g.Snapshot()
	assert.Equal(t, []string{"u5", "u6", "u7", "u8"}, snap.BlueTeam.Players)

	// A ninth player finds the room full; state is unchanged.
	err := g.EnterPlayer("u9", "s9")
	assert.True(t, errors.Is(err, ErrRoomFull))
	snap = g.Snapshot()
	assert.Len(t, snap.RedTeam.Players, 4)
	assert.Len(t, snap.BlueTeam.Players, 4)
}

func TestEnterPlayer_RebindsExistingSeat(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	require.NoError(t, g.EnterPlayer("u1", "s1"))

	// The same player reconnecting under a new session keeps one seat.
	require.NoError(t, g.EnterPlayer("u1", "s1-refreshed"))
	assert.Equal(t, []string{"u1"}, g.Snapshot().RedTeam.Players)

	_, err := g.ExitPlayer("s1-refreshed")
	require.NoError(t, err)
	assert.True(t, g.IsEmpty())
}

func TestChangeTeam_PreservesInsertionOrder(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	require.NoError(t, g.EnterPlayer("u2", "s2"))
	require.NoError(t, g.EnterPlayer("u3", "s3"))

	require.NoError(t, g.ChangeTeam("u2"))
	snap := g.Snapshot()
	assert.Equal(t, []string{"u1", "u3"}, snap.RedTeam.Players)
	assert.Equal(t, []string{"u2"}, snap.BlueTeam.Players)

	// Moving back appends at the end of red.
	require.NoError(t, g.ChangeTeam("u2"))
	snap = g.Snapshot()
	assert.Equal(t, []string{"u1", "u3", "u2"}, snap.RedTeam.Players)

	err := g.ChangeTeam("ghost")
	assert.True(t, errors.Is(err, ErrPlayerNotFound))

	solo := NewGame("Solo", "u1", GameTypeSolo)
	assert.Error(t, solo.ChangeTeam("u1"))
}

func TestExitPlayer_UnknownSession(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	_, err := g.ExitPlayer("nope")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestStart_AllocatesBoardsOnce(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)

	_, err := g.ElapsedSeconds()
	assert.True(t, errors.Is(err, ErrNotStarted))

	require.NoError(t, g.Start(testBoardConfig()))
	assert.True(t, g.Started())

	snap := g.Snapshot()
	require.NotNil(t, snap.RedTeam.Board)
	require.NotNil(t, snap.BlueTeam.Board)
	assert.Equal(t, 4, snap.RedTeam.Board.WidthCount)
	assert.NotNil(t, snap.StartTime)

	elapsed, err := g.ElapsedSeconds()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, int64(0))

	// Idempotent: a second start keeps the original boards and start time.
	first := *snap.StartTime
	require.NoError(t, g.Start(testBoardConfig()))
	assert.Equal(t, first, *g.Snapshot().StartTime)
}

func TestAddPieces_RequiresStartAndSeat(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	require.NoError(t, g.EnterPlayer("u1", "s1"))

	_, err := g.AddPieces("u1", []int{0})
	assert.True(t, errors.Is(err, ErrNotStarted))

	require.NoError(t, g.Start(testBoardConfig()))

	_, err = g.AddPieces("ghost", []int{0})
	assert.True(t, errors.Is(err, ErrPlayerNotFound))

	res, err := g.AddPieces("u1", []int{0, 1, 2})
	require.NoError(t, err)
	assert.True(t, res.Combo)

	_, err = g.AddPieces("u1", []int{99})
	assert.True(t, errors.Is(err, puzzle.ErrInvalidIndex))
}

func TestAddPieces_TargetsSendersBoardOnly(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	require.NoError(t, g.EnterPlayer("u1", "s1"))
	require.NoError(t, g.EnterPlayer("u2", "s2"))
	require.NoError(t, g.ChangeTeam("u2"))
	require.NoError(t, g.Start(testBoardConfig()))

	_, err := g.AddPieces("u1", []int{0, 1})
	require.NoError(t, err)

	snap := g.Snapshot()
	assert.True(t, snap.RedTeam.Board.Matched[0][0])
	assert.False(t, snap.BlueTeam.Board.Matched[0][0], "opponent board untouched")
}

func TestUseItem_AppliesToSendersBoard(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	require.NoError(t, g.EnterPlayer("u1", "s1"))
	require.NoError(t, g.Start(testBoardConfig()))

	res, err := g.UseItem("u1", puzzle.ItemFrame)
	require.NoError(t, err)
	assert.Len(t, res.Matched, 10)
}

func TestConsumeDrop(t *testing.T) {
	g := NewGame("Alpha", "u1", GameTypeBattle)
	require.NoError(t, g.EnterPlayer("u1", "s1"))
	require.NoError(t, g.Start(testBoardConfig()))

	drop := puzzle.DropItem{ID: "d1", Type: puzzle.ItemFrame}
	g.AddDrop(drop)
	assert.Len(t, g.Snapshot().Drops, 1)

	res, err := g.ConsumeDrop("u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, puzzle.ItemFrame, res.Item)
	assert.Empty(t, g.Snapshot().Drops)

	_, err = g.ConsumeDrop("u1", "d1")
	assert.True(t, errors.Is(err, ErrDropNotFound))
}

func TestGameType_Parsing(t *testing.T) {
	assert.Equal(t, GameTypeBattle, ParseGameType("BATTLE"))
	assert.Equal(t, GameTypeSolo, ParseGameType("SOLO"))
	assert.Equal(t, GameTypeCooperative, ParseGameType("COOPERATIVE"))
	assert.Equal(t, GameTypeBattle, ParseGameType("whatever"))

	assert.True(t, GameTypeBattle.Timed())
	assert.False(t, GameTypeCooperative.Timed())
}
