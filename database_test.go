package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory database private to the test.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := openDB("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestArchiveRoundTrip(t *testing.T) {
	archive := newSQLArchive(newTestDB(t))
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	id, err := archive.StartGame("ABCD", 6, start)
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, archive.RecordEvent(id, 1, PhaseNight, "Game started! Night phase begins.", start))
	require.NoError(t, archive.RecordEvent(id, 1, PhaseNight, "No one was killed during the night.", start.Add(time.Minute)))
	require.NoError(t, archive.FinishGame(id, townWins, start.Add(5*time.Minute)))

	games, err := archive.recentGames(10)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, id, games[0].ID)
	assert.Equal(t, "ABCD", games[0].RoomCode)
	assert.Equal(t, 6, games[0].PlayerCount)
	assert.Equal(t, townWins, games[0].Result)
	require.NotNil(t, games[0].FinishedAt)
	assert.True(t, games[0].FinishedAt.Equal(start.Add(5*time.Minute)))

	events, err := archive.gameEvents(id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Game started! Night phase begins.", events[0].Message)
	assert.Equal(t, "night", events[1].Phase)
	assert.Equal(t, 1, events[1].Round)
}

func TestRecentGamesNewestFirst(t *testing.T) {
	archive := newSQLArchive(newTestDB(t))
	now := time.Now()

	for _, code := range []string{"AAAA", "BBBB", "CCCC"} {
		_, err := archive.StartGame(code, 6, now)
		require.NoError(t, err)
	}

	games, err := archive.recentGames(2)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "CCCC", games[0].RoomCode)
	assert.Equal(t, "BBBB", games[1].RoomCode)
	assert.Nil(t, games[0].FinishedAt)
}

func TestRoomArchivesItsGame(t *testing.T) {
	archive := newSQLArchive(newTestDB(t))
	tbl := newTestTable(t, 3, RoomSettings{PhaseDuration: time.Hour, MinPlayers: 3, Archive: archive})
	r := tbl.room

	require.NoError(t, r.StartGame(tbl.id(0)))
	require.NoError(t, r.DisbandRoom(tbl.id(0)))

	games, err := archive.recentGames(1)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "TEST", games[0].RoomCode)
	assert.Equal(t, 3, games[0].PlayerCount)
	assert.Equal(t, "Room disbanded", games[0].Result)

	events, err := archive.gameEvents(games[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "Game started! Night phase begins.", events[0].Message)
}
