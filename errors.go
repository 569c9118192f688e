package main

import "fmt"

// ErrorKind classifies a rejected request.
type ErrorKind int

const (
	KindAuthorization ErrorKind = iota // non-host attempting a host-only action
	KindPhase                          // action outside its valid phase
	KindState                          // dead actor/target, duplicates, not enough players...
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindPhase:
		return "phase"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// GameError is returned by room operations that were rejected without
// mutating state. Message is safe to show to the requesting player.
type GameError struct {
	Kind    ErrorKind
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

var (
	ErrNotHostStart   = &GameError{KindAuthorization, "Only the host can start the game"}
	ErrNotHostRestart = &GameError{KindAuthorization, "Only the host can restart the game"}
	ErrNotHostDisband = &GameError{KindAuthorization, "Only the host can disband the room"}

	ErrGameAlreadyStarted = &GameError{KindPhase, "Game already started"}
	ErrGameNotFinished    = &GameError{KindPhase, "Game is not finished yet"}
	ErrNotDayPhase        = &GameError{KindPhase, "Can only vote during day phase"}
	ErrNotNightPhase      = &GameError{KindPhase, "Can only perform actions during night phase"}
	ErrMafiaOnlyAtNight   = &GameError{KindPhase, "Only mafia can chat during the night"}

	ErrPlayerNotFound  = &GameError{KindState, "You are not in this room"}
	ErrDeadPlayer      = &GameError{KindState, "Dead players cannot do that"}
	ErrInvalidTarget   = &GameError{KindState, "Invalid target"}
	ErrAlreadyVoted    = &GameError{KindState, "You cannot change your vote"}
	ErrAlreadyActed    = &GameError{KindState, "You cannot change your action"}
	ErrNoNightAction   = &GameError{KindState, "Your role has no night action"}
	ErrEmptyMessage    = &GameError{KindState, "Message is empty"}
	ErrRoomClosed      = &GameError{KindState, "The room has been closed"}
	ErrRoomNotFound    = &GameError{KindState, "Game not found."}
	ErrGameInProgress  = &GameError{KindState, "Game in progress."}
	ErrNameRequired    = &GameError{KindState, "Name is required"}
	ErrTooManyRequests = &GameError{KindState, "Slow down"}
)

func errNotEnoughPlayers(minimum int) *GameError {
	return &GameError{KindState, fmt.Sprintf("Need at least %d players to start", minimum)}
}
