package main

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// GameArchive records games and their public events. Rooms treat archive
// failures as non-fatal.
type GameArchive interface {
	StartGame(roomCode string, playerCount int, at time.Time) (int64, error)
	RecordEvent(gameID int64, round int, phase Phase, message string, at time.Time) error
	FinishGame(gameID int64, result string, at time.Time) error
}

// GameRecord is one archived game.
type GameRecord struct {
	ID          int64      `db:"id" json:"id"`
	RoomCode    string     `db:"room_code" json:"room_code"`
	PlayerCount int        `db:"player_count" json:"player_count"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at"`
	Result      string     `db:"result" json:"result"`
}

// GameEvent is one archived public event.
type GameEvent struct {
	ID        int64     `db:"id" json:"-"`
	GameID    int64     `db:"game_id" json:"-"`
	Round     int       `db:"round" json:"round"`
	Phase     string    `db:"phase" json:"phase"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// sqlArchive is the SQLite-backed GameArchive.
type sqlArchive struct {
	db *sqlx.DB
}

func openDB(dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dsn, err)
	}
	if err := initDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func initDB(conn *sqlx.DB) error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS game (
		room_code TEXT NOT NULL,
		player_count INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		result TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS game_event (
		game_id INTEGER NOT NULL,
		round INTEGER NOT NULL,
		phase TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (game_id) REFERENCES game(rowid)
	);
	CREATE INDEX IF NOT EXISTS idx_game_event_game ON game_event(game_id);
	`
	if _, err := conn.Exec(schema); err != nil {
		log.Printf("initDB error: %v", err)
		return fmt.Errorf("init schema: %w", err)
	}
	log.Printf("Database initialized successfully")
	return nil
}

func newSQLArchive(conn *sqlx.DB) *sqlArchive {
	return &sqlArchive{db: conn}
}

func (a *sqlArchive) StartGame(roomCode string, playerCount int, at time.Time) (int64, error) {
	result, err := a.db.Exec(
		"INSERT INTO game (room_code, player_count, started_at) VALUES (?, ?, ?)",
		roomCode, playerCount, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return result.LastInsertId()
}

func (a *sqlArchive) RecordEvent(gameID int64, round int, phase Phase, message string, at time.Time) error {
	_, err := a.db.Exec(
		"INSERT INTO game_event (game_id, round, phase, message, created_at) VALUES (?, ?, ?, ?, ?)",
		gameID, round, string(phase), message, at.UTC())
	if err != nil {
		return fmt.Errorf("insert event for game %d: %w", gameID, err)
	}
	return nil
}

func (a *sqlArchive) FinishGame(gameID int64, result string, at time.Time) error {
	_, err := a.db.Exec("UPDATE game SET result = ?, finished_at = ? WHERE rowid = ?", result, at.UTC(), gameID)
	if err != nil {
		return fmt.Errorf("finish game %d: %w", gameID, err)
	}
	return nil
}

// recentGames returns the latest games, newest first.
func (a *sqlArchive) recentGames(limit int) ([]GameRecord, error) {
	var games []GameRecord
	err := a.db.Select(&games, `
		SELECT rowid as id, room_code, player_count, started_at, finished_at, result
		FROM game
		ORDER BY rowid DESC
		LIMIT ?`, limit)
	return games, err
}

// gameEvents returns the archived events of one game in order.
func (a *sqlArchive) gameEvents(gameID int64) ([]GameEvent, error) {
	var events []GameEvent
	err := a.db.Select(&events, `
		SELECT rowid as id, game_id, round, phase, message, created_at
		FROM game_event
		WHERE game_id = ?
		ORDER BY rowid ASC`, gameID)
	return events, err
}
