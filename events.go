package main

import "time"

// Outbound event types
const (
	EventRoomCreated   = "room_created"
	EventRoomJoined    = "room_joined"
	EventGameState     = "game_state"
	EventPlayerInfo    = "player_info"
	EventPlayersUpdate = "players_update"
	EventChatMessage   = "chat_message"
	EventVoteCast      = "vote_cast"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventRoomDisbanded = "room_disbanded"
	EventError         = "error"
)

const serverSender = "[Server]"

// Event is anything that can be delivered to a player connection.
type Event interface {
	EventType() string
}

type RoomEntryEvent struct {
	Type     string `json:"type"`
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

func (e RoomEntryEvent) EventType() string { return e.Type }

type GameStateEvent struct {
	Type          string  `json:"type"`
	Phase         Phase   `json:"phase"`
	TimeRemaining int     `json:"time_remaining"`
	GameResult    *string `json:"game_result"`
	IsHost        bool    `json:"is_host"`
}

func (e GameStateEvent) EventType() string { return e.Type }

type PlayerInfoEvent struct {
	Type            string  `json:"type"`
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Role            *string `json:"role"`
	RoleDescription *string `json:"role_description"`
	IsAlive         bool    `json:"is_alive"`
	CanActAtNight   bool    `json:"can_act_at_night"`
	CanChat         bool    `json:"can_chat"`
	IsHost          bool    `json:"is_host"`
	HasVoted        bool    `json:"has_voted"`
	HasActed        bool    `json:"has_acted"`
}

func (e PlayerInfoEvent) EventType() string { return e.Type }

// PublicPlayer is the roster entry every player may see. It never carries a role.
type PublicPlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAlive bool   `json:"is_alive"`
}

type PlayersUpdateEvent struct {
	Type    string         `json:"type"`
	Players []PublicPlayer `json:"players"`
}

func (e PlayersUpdateEvent) EventType() string { return e.Type }

// ChatMessage is one line of chat or a server announcement.
type ChatMessage struct {
	Sender    string  `json:"sender"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
	IsServer  bool    `json:"is_server"`
}

type ChatEvent struct {
	Type string      `json:"type"`
	Chat ChatMessage `json:"chat"`
}

func (e ChatEvent) EventType() string { return e.Type }

type VoteCastEvent struct {
	Type   string `json:"type"`
	Voter  string `json:"voter"`
	Target string `json:"target"`
}

func (e VoteCastEvent) EventType() string { return e.Type }

// NoticeEvent covers the message-only events: player_joined, player_left,
// room_disbanded and error.
type NoticeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e NoticeEvent) EventType() string { return e.Type }

func newErrorEvent(message string) NoticeEvent {
	return NoticeEvent{Type: EventError, Message: message}
}

func newServerChat(message string, at time.Time) ChatEvent {
	return ChatEvent{Type: EventChatMessage, Chat: ChatMessage{
		Sender:    serverSender,
		Message:   message,
		Timestamp: unixSeconds(at),
		IsServer:  true,
	}}
}

// unixSeconds renders a time the way the web client expects it: fractional
// seconds since the epoch.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
