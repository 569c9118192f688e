package main

import (
	"strings"
)

const maxChatLength = 500

// SendChat delivers a chat line from a living player. At night only mafia
// may talk and only living mafia hear it; otherwise the whole room hears it.
func (r *Room) SendChat(playerID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}

	p, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.IsAlive {
		return ErrDeadPlayer
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if runes := []rune(text); len(runes) > maxChatLength {
		text = string(runes[:maxChatLength])
	}

	if r.phase == PhaseNight && !p.isMafia() {
		return ErrMafiaOnlyAtNight
	}

	msg := ChatMessage{Sender: p.Name, Message: text, Timestamp: unixSeconds(r.now())}
	r.chatLog = append(r.chatLog, msg)
	event := ChatEvent{Type: EventChatMessage, Chat: msg}

	// Lobby chat: in WAITING and FINISHED the whole room hears it, same as DAY.
	if r.phase == PhaseNight {
		r.broadcastToMafia(event)
	} else {
		r.broadcast(event)
	}
	DebugLog("Room %s chat from '%s' during %s", r.code, p.Name, r.phase)

	r.broadcastState()
	return nil
}

// canChat reports whether p may currently send chat.
func (r *Room) canChat(p *Player) bool {
	if !p.IsAlive {
		return false
	}
	if r.phase == PhaseNight {
		return p.isMafia()
	}
	return true
}
