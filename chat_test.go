package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNightChatReachesOnlyLivingMafia(t *testing.T) {
	tbl := roomWithRoles(t, Mafia{}, Mafia{}, Mafia{}, Villager{}, Villager{}, Villager{}, Villager{})
	r := tbl.room

	r.mu.Lock()
	tbl.players[2].IsAlive = false
	r.mu.Unlock()

	require.NoError(t, r.SendChat(tbl.id(0), "Tonight we take P4"))

	for i, s := range tbl.senders {
		texts := s.chatTexts()
		if i < 2 {
			assert.Equal(t, []string{"Tonight we take P4"}, texts, "living mafia %d", i)
		} else {
			assert.Empty(t, texts, "player %d must not hear the mafia", i)
		}
	}
}

func TestTownIsSilentAtNight(t *testing.T) {
	tbl := roomWithRoles(t, Mafia{}, Villager{}, Villager{})

	err := tbl.room.SendChat(tbl.id(1), "Hello?")
	assert.ErrorIs(t, err, ErrMafiaOnlyAtNight)
	for _, s := range tbl.senders {
		assert.Empty(t, s.chats())
	}
}

func TestDayChatReachesEveryone(t *testing.T) {
	tbl := roomWithRoles(t, Mafia{}, Villager{}, Villager{}, Villager{})
	tbl.endPhase()
	tbl.resetSenders()

	require.NoError(t, tbl.room.SendChat(tbl.id(1), "  I trust no one  "))

	for _, s := range tbl.senders {
		chats := s.chats()
		require.Len(t, chats, 1)
		assert.Equal(t, "P2", chats[0].Sender)
		assert.Equal(t, "I trust no one", chats[0].Message)
		assert.False(t, chats[0].IsServer)
	}
}

func TestDeadPlayersCannotChat(t *testing.T) {
	tbl := roomWithRoles(t, Mafia{}, Villager{}, Villager{}, Villager{})
	tbl.endPhase()
	r := tbl.room

	r.mu.Lock()
	tbl.players[1].IsAlive = false
	r.mu.Unlock()

	assert.ErrorIs(t, r.SendChat(tbl.id(1), "boo"), ErrDeadPlayer)
}

func TestLobbyChat(t *testing.T) {
	tbl := newTestTable(t, 3, RoomSettings{})

	require.NoError(t, tbl.room.SendChat(tbl.id(2), "ready when you are"))
	for _, s := range tbl.senders {
		assert.Contains(t, s.chatTexts(), "ready when you are")
	}
}

func TestChatAfterGameReachesEveryone(t *testing.T) {
	tbl := roomWithRoles(t, Mafia{}, Villager{}, Villager{})
	r := tbl.room
	tbl.endPhase()
	require.NoError(t, r.Vote(tbl.id(1), tbl.id(0)))
	require.NoError(t, r.Vote(tbl.id(2), tbl.id(0)))
	tbl.endPhase()
	require.Equal(t, PhaseFinished, r.Phase())

	require.NoError(t, r.SendChat(tbl.id(1), "gg"))
	for i, s := range tbl.senders {
		assert.Contains(t, s.chatTexts(), "gg", "player %d", i)
	}
}

func TestChatMessageLimits(t *testing.T) {
	tbl := newTestTable(t, 2, RoomSettings{})
	r := tbl.room

	assert.ErrorIs(t, r.SendChat(tbl.id(0), "   "), ErrEmptyMessage)
	assert.ErrorIs(t, r.SendChat("nobody", "hi"), ErrPlayerNotFound)

	long := strings.Repeat("ä", maxChatLength+50)
	require.NoError(t, r.SendChat(tbl.id(0), long))

	chats := tbl.senders[1].chats()
	require.Len(t, chats, 1)
	assert.Equal(t, maxChatLength, utf8.RuneCountInString(chats[0].Message))
}
