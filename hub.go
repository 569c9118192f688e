package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Inbound message types
const (
	MsgNewRoom     = "new_room"
	MsgJoinRoom    = "join_room"
	MsgVote        = "vote"
	MsgNightAction = "night_action"
	MsgChat        = "chat"
	MsgStartGame   = "start_game"
	MsgReplayGame  = "replay_game"
	MsgDisbandRoom = "disband_room"
)

const (
	outboxSize     = 256
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

var (
	errClientClosed = errors.New("connection closed")
	errOutboxFull   = errors.New("outbound queue full")
)

// WSMessage represents a message from the client
type WSMessage struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	RoomCode string `json:"room_code,omitempty"`
	Target   string `json:"target,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Client is one WebSocket connection. Outbound events are queued and written
// by a single write pump, so a slow connection never blocks a room.
type Client struct {
	conn      *websocket.Conn
	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter

	mu     sync.Mutex
	room   *Room
	player *Player
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:    conn,
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(5, 10),
	}
}

// Send implements Sender.
func (c *Client) Send(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return errOutboxFull
	}
}

// finish stops the write pump after it flushes what is already queued.
func (c *Client) finish() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) seat() (*Room, *Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.player
}

func (c *Client) sit(room *Room, player *Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room, c.player = room, player
}

func (c *Client) label() string {
	if _, p := c.seat(); p != nil {
		return p.Name
	}
	return c.conn.RemoteAddr().String()
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case data := <-c.outbox:
			if !c.write(data) {
				return
			}
		case <-c.done:
			for {
				select {
				case data := <-c.outbox:
					if !c.write(data) {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Client) write(data []byte) bool {
	LogWSMessage("OUT", c.label(), string(data))
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("WebSocket write error to %s: %v", c.label(), err)
		return false
	}
	return true
}

// Hub tracks every open connection and routes their messages to rooms.
type Hub struct {
	directory  *Directory
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
	upgrader   websocket.Upgrader
}

// newHub creates a hub; run must be started before stop is called.
func newHub(directory *Directory) *Hub {
	h := &Hub{
		directory:  directory,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			// The web client is served from its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.wg.Add(1)
	return h
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected from %s. Total: %d", client.conn.RemoteAddr(), total)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			total := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			client.finish()
			log.Printf("WebSocket client disconnected (%s). Total: %d", client.label(), total)

			// Leave after releasing the hub lock; the room broadcasts to the others.
			if room, player := client.seat(); room != nil && player != nil {
				h.directory.Leave(room, player.ID)
			}
		}
	}
}

// stop signals the hub goroutine to exit, waits for it, and closes every connection.
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	for client := range h.clients {
		client.finish()
		delete(h.clients, client)
	}
	h.mu.Unlock()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// finishRoom closes every connection seated in room.
func (h *Hub) finishRoom(room *Room) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if r, _ := client.seat(); r == room {
			client.finish()
		}
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error for %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := newClient(conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go func() {
		defer func() {
			select {
			case h.unregister <- client:
			case <-h.done:
				client.finish()
			}
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleWSMessage(client, message)
		}
	}()
}

func (h *Hub) handleWSMessage(c *Client, message []byte) {
	LogWSMessage("IN", c.label(), string(message))

	if !c.limiter.Allow() {
		h.sendError(c, ErrTooManyRequests)
		return
	}

	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("WebSocket unmarshal error from %s: %v", c.label(), err)
		h.sendError(c, &GameError{KindState, "Malformed message"})
		return
	}

	room, player := c.seat()
	if room == nil {
		h.handleLobbyMessage(c, msg)
		return
	}

	var err error
	switch msg.Type {
	case MsgVote:
		err = room.Vote(player.ID, msg.Target)
	case MsgNightAction:
		err = room.NightAction(player.ID, msg.Target)
	case MsgChat:
		err = room.SendChat(player.ID, msg.Message)
	case MsgStartGame:
		err = room.StartGame(player.ID)
	case MsgReplayGame:
		err = room.PlayAgain(player.ID)
	case MsgDisbandRoom:
		if err = room.DisbandRoom(player.ID); err == nil {
			h.directory.Remove(room)
			h.finishRoom(room)
		}
	case MsgNewRoom, MsgJoinRoom:
		err = &GameError{KindState, "You are already in a room"}
	default:
		log.Printf("Unknown message type %q from %s in room %s", msg.Type, player.Name, room.Code())
		err = &GameError{KindState, "Unknown message type"}
	}

	if err != nil {
		DebugLog("Rejected %s from '%s' in room %s: %v", msg.Type, player.Name, room.Code(), err)
		h.sendError(c, err)
	}
}

// handleLobbyMessage handles messages from a connection that is not in a room yet.
func (h *Hub) handleLobbyMessage(c *Client, msg WSMessage) {
	var (
		room *Room
		err  error
	)
	player := NewPlayer(msg.Name, c)

	switch msg.Type {
	case MsgNewRoom:
		if player.Name == "" {
			h.sendError(c, ErrNameRequired)
			return
		}
		room, err = h.directory.Host(player)
	case MsgJoinRoom:
		if player.Name == "" {
			h.sendError(c, ErrNameRequired)
			return
		}
		room, err = h.directory.Join(msg.RoomCode, player)
	default:
		h.sendError(c, &GameError{KindState, "Create or join a room first"})
		return
	}

	if err != nil {
		h.sendError(c, err)
		return
	}
	c.sit(room, player)
}

func (h *Hub) sendError(c *Client, err error) {
	message := "Something went wrong"
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		message = gameErr.Message
	} else {
		logError("handleWSMessage", err)
	}
	if sendErr := c.Send(newErrorEvent(message)); sendErr != nil {
		log.Printf("Failed to send error to %s: %v", c.label(), sendErr)
	}
}
