package main

import (
	"crypto/rand"
	"log"
	"math/big"
	"strings"
	"sync"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 4
)

// Directory owns every live room by code. Rooms know nothing about it.
type Directory struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	settings RoomSettings
}

func NewDirectory(settings RoomSettings) *Directory {
	return &Directory{
		rooms:    make(map[string]*Room),
		settings: settings,
	}
}

func generateRoomCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := 0; i < roomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Create registers a new empty room under a fresh code.
func (d *Directory) Create() (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		code, err := generateRoomCode()
		if err != nil {
			return nil, err
		}
		if _, taken := d.rooms[code]; taken {
			continue
		}
		room := NewRoom(code, d.settings)
		d.rooms[code] = room
		log.Printf("Created room %s (%d rooms)", code, len(d.rooms))
		return room, nil
	}
}

// Get looks a room up by code, ignoring case and surrounding spaces.
func (d *Directory) Get(code string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return room, ok
}

// Host creates a room with p as its first player and host.
func (d *Directory) Host(p *Player) (*Room, error) {
	room, err := d.Create()
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	err = room.AddPlayer(p)
	d.mu.RUnlock()
	if err != nil {
		d.Remove(room)
		return nil, err
	}
	return room, nil
}

// Join adds p to an existing room that is still waiting for players.
func (d *Directory) Join(code string, p *Player) (*Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := room.AddPlayer(p); err != nil {
		return nil, err
	}
	return room, nil
}

// Leave removes a player from a room and tears the room down once it is empty.
func (d *Directory) Leave(room *Room, playerID string) {
	if room.RemovePlayer(playerID) > 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// Join holds the read lock while adding, so the count is stable here.
	if room.PlayerCount() > 0 {
		return
	}
	d.forget(room)
}

// Remove closes a room and forgets it.
func (d *Directory) Remove(room *Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forget(room)
}

func (d *Directory) forget(room *Room) {
	room.Close()
	if d.rooms[room.Code()] == room {
		delete(d.rooms, room.Code())
		log.Printf("Removed room %s (%d rooms)", room.Code(), len(d.rooms))
	}
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// CloseAll closes every room, used on shutdown.
func (d *Directory) CloseAll() {
	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.rooms))
	for code, room := range d.rooms {
		rooms = append(rooms, room)
		delete(d.rooms, code)
	}
	d.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}
