package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// TEST_DEBUG=1 go test -v prints the room's debug log alongside test output.
	logger, err := NewAppLogger(LogConfig{Debug: os.Getenv("TEST_DEBUG") == "1"}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	appLogger = logger
	os.Exit(m.Run())
}

// recordingSender captures every event delivered to one player.
type recordingSender struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *recordingSender) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection gone")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSender) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *recordingSender) ofType(typ string) []Event {
	var out []Event
	for _, e := range s.all() {
		if e.EventType() == typ {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSender) chats() []ChatMessage {
	var out []ChatMessage
	for _, e := range s.ofType(EventChatMessage) {
		out = append(out, e.(ChatEvent).Chat)
	}
	return out
}

func (s *recordingSender) chatTexts() []string {
	var out []string
	for _, c := range s.chats() {
		out = append(out, c.Message)
	}
	return out
}

func (s *recordingSender) lastInfo(t *testing.T) PlayerInfoEvent {
	t.Helper()
	infos := s.ofType(EventPlayerInfo)
	require.NotEmpty(t, infos, "no player_info received")
	return infos[len(infos)-1].(PlayerInfoEvent)
}

func (s *recordingSender) lastState(t *testing.T) GameStateEvent {
	t.Helper()
	states := s.ofType(EventGameState)
	require.NotEmpty(t, states, "no game_state received")
	return states[len(states)-1].(GameStateEvent)
}

// testTable is a room with seated players, each with their own recorder.
type testTable struct {
	t       *testing.T
	room    *Room
	players []*Player
	senders []*recordingSender
	clock   time.Time
}

func newTestTable(t *testing.T, n int, settings RoomSettings) *testTable {
	t.Helper()
	tbl := &testTable{
		t:     t,
		room:  NewRoom("TEST", settings),
		clock: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC),
	}
	tbl.room.now = func() time.Time { return tbl.clock }
	for i := 0; i < n; i++ {
		tbl.seat(fmt.Sprintf("P%d", i+1))
	}
	t.Cleanup(tbl.room.Close)
	return tbl
}

func (tbl *testTable) seat(name string) (*Player, *recordingSender) {
	tbl.t.Helper()
	sender := &recordingSender{}
	p := NewPlayer(name, sender)
	require.NoError(tbl.t, tbl.room.AddPlayer(p))
	tbl.players = append(tbl.players, p)
	tbl.senders = append(tbl.senders, sender)
	return p, sender
}

func (tbl *testTable) id(i int) string { return tbl.players[i].ID }

func (tbl *testTable) resetSenders() {
	for _, s := range tbl.senders {
		s.reset()
	}
}

// deal hands out roles in seat order and opens the first night without
// starting the phase loop, so tests drive phase ends themselves.
func (tbl *testTable) deal(roles ...Role) {
	tbl.t.Helper()
	require.Len(tbl.t, roles, len(tbl.players))

	r := tbl.room
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range tbl.players {
		p.Role = roles[i]
	}
	r.loopCtx, r.cancelLoop = context.WithCancel(context.Background())
	r.phase = PhaseNight
	r.beginNight()
}

// endPhase ends the current phase as if its deadline had passed.
func (tbl *testTable) endPhase() {
	r := tbl.room
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endPhase()
}

func (tbl *testTable) round() int {
	tbl.room.mu.Lock()
	defer tbl.room.mu.Unlock()
	return tbl.room.round
}

func (tbl *testTable) alive(i int) bool {
	tbl.room.mu.Lock()
	defer tbl.room.mu.Unlock()
	return tbl.players[i].IsAlive
}

func (tbl *testTable) eventLog() []string {
	tbl.room.mu.Lock()
	defer tbl.room.mu.Unlock()
	return tbl.room.eventMessages()
}

// roomWithRoles is a shortcut for the common night-one setup.
func roomWithRoles(t *testing.T, roles ...Role) *testTable {
	t.Helper()
	tbl := newTestTable(t, len(roles), RoomSettings{MinPlayers: 3})
	tbl.deal(roles...)
	tbl.resetSenders()
	return tbl
}
