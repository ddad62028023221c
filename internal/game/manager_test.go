package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T, grace time.Duration) *Manager {
	t.Helper()
	return NewManager(grace, zaptest.NewLogger(t))
}

func TestManager_CreateAndFind(t *testing.T) {
	m := newTestManager(t, time.Second)

	g := m.CreateGame("Alpha", "u1", GameTypeBattle)
	found, ok := m.GetGame(g.ID())
	require.True(t, ok)
	assert.Same(t, g, found)

	_, ok = m.GetGame("missing")
	assert.False(t, ok, "missing rooms report not-found, never a nil placeholder")
}

func TestManager_ListGamesOrder(t *testing.T) {
	m := newTestManager(t, time.Second)

	a := m.CreateGame("A", "u1", GameTypeBattle)
	b := m.CreateGame("B", "u2", GameTypeBattle)
	c := m.CreateGame("C", "u3", GameTypeBattle)

	ids := func(games []*Game) []string {
		out := make([]string, len(games))
		for i, g := range games {
			out[i] = g.ID()
		}
		return out
	}

	assert.Equal(t, []string{a.ID(), b.ID(), c.ID()}, ids(m.ListGames(false)))
	assert.Equal(t, []string{c.ID(), b.ID(), a.ID()}, ids(m.ListGames(true)),
		"most recent first for display")

	m.RemoveGame(b.ID())
	assert.Equal(t, []string{a.ID(), c.ID()}, ids(m.ListGames(false)))
}

func TestManager_StartedGames(t *testing.T) {
	m := newTestManager(t, time.Second)

	m.CreateGame("idle", "u1", GameTypeBattle)
	started := m.CreateGame("running", "u2", GameTypeBattle)
	require.NoError(t, started.Start(testBoardConfig()))

	games := m.StartedGames()
	require.Len(t, games, 1)
	assert.Equal(t, started.ID(), games[0].ID())
}

func TestManager_EnterGame(t *testing.T) {
	m := newTestManager(t, time.Second)
	g := m.CreateGame("Alpha", "u1", GameTypeBattle)

	_, err := m.EnterGame("missing", "u2", "s2")
	assert.True(t, errors.Is(err, ErrRoomNotFound))

	entered, err := m.EnterGame(g.ID(), "u2", "s2")
	require.NoError(t, err)
	assert.Same(t, g, entered)

	roomID, ok := m.ResolveSession("s2")
	require.True(t, ok)
	assert.Equal(t, g.ID(), roomID)
}

func TestManager_DisconnectDeletesEmptyRoomAfterGrace(t *testing.T) {
	m := newTestManager(t, 50*time.Millisecond)
	g := m.CreateGame("Alpha", "u1", GameTypeBattle)
	_, err := m.EnterGame(g.ID(), "u1", "s1")
	require.NoError(t, err)

	roomID, playerID, err := m.HandleDisconnect("s1")
	require.NoError(t, err)
	assert.Equal(t, g.ID(), roomID)
	assert.Equal(t, "u1", playerID)

	// Not deleted immediately: the grace window is still open.
	_, ok := m.GetGame(g.ID())
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := m.GetGame(g.ID())
		return !ok
	}, time.Second, 10*time.Millisecond, "room must be deleted after the grace window")
}

func TestManager_RejoinDuringGraceKeepsRoom(t *testing.T) {
	m := newTestManager(t, 80*time.Millisecond)
	g := m.CreateGame("Alpha", "u1", GameTypeBattle)
	_, err := m.EnterGame(g.ID(), "u1", "s1")
	require.NoError(t, err)

	_, _, err = m.HandleDisconnect("s1")
	require.NoError(t, err)

	// The refreshed client re-enters within the window.
	_, err = m.EnterGame(g.ID(), "u1", "s1-refreshed")
	require.NoError(t, err)

	time.Sleep(160 * time.Millisecond)
	found, ok := m.GetGame(g.ID())
	require.True(t, ok, "rejoin during the grace window must keep the room")
	assert.Equal(t, []string{"u1"}, found.Snapshot().RedTeam.Players)
}

func TestManager_DisconnectPopulatedRoomKeepsIt(t *testing.T) {
	m := newTestManager(t, 30*time.Millisecond)
	g := m.CreateGame("Alpha", "u1", GameTypeBattle)
	_, err := m.EnterGame(g.ID(), "u1", "s1")
	require.NoError(t, err)
	_, err = m.EnterGame(g.ID(), "u2", "s2")
	require.NoError(t, err)

	_, _, err = m.HandleDisconnect("s2")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	_, ok := m.GetGame(g.ID())
	assert.True(t, ok)
}

func TestManager_DisconnectUnknownSession(t *testing.T) {
	m := newTestManager(t, time.Second)
	_, _, err := m.HandleDisconnect("nope")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}
