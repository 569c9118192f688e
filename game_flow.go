package main

import (
	"context"
	"log"
	"time"
)

const (
	townWins  = "Town wins! All mafia have been eliminated."
	mafiaWins = "Mafia wins! They equal or outnumber the town."
)

// StartGame assigns roles and begins the first night. Only the host may
// start, and only from WAITING with enough players.
func (r *Room) StartGame(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if requesterID != r.host {
		return ErrNotHostStart
	}
	if r.phase != PhaseWaiting {
		return ErrGameAlreadyStarted
	}

	alive := r.livingPlayers()
	if len(alive) < r.settings.MinPlayers {
		return errNotEnoughPlayers(r.settings.MinPlayers)
	}

	pool := buildRolePool(len(alive))
	shuffleRoles(pool)
	for i, p := range alive {
		p.Role = pool[i]
	}

	if r.settings.Archive != nil {
		id, err := r.settings.Archive.StartGame(r.code, len(alive), r.now())
		if err != nil {
			logError("StartGame: archive game", err)
		}
		r.gameID = id
	}

	log.Printf("Room %s: game started with %d players", r.code, len(alive))
	r.phase = PhaseNight
	r.addEvent("Game started! Night phase begins.")
	r.beginNight()
	r.launchLoop()
	return nil
}

// PlayAgain returns a finished room to WAITING, clearing every trace of the
// last game and reviving everyone.
func (r *Room) PlayAgain(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if requesterID != r.host {
		return ErrNotHostRestart
	}
	if r.phase != PhaseFinished {
		return ErrGameNotFinished
	}

	r.stopLoop()

	r.phase = PhaseWaiting
	r.gameResult = ""
	r.phaseDeadline = time.Time{}
	r.round = 0
	r.gameID = 0
	r.votes = make(map[string]string)
	r.nightActions = make(map[string]string)
	r.killSet = nil
	r.protectSet = nil
	r.chatLog = nil
	r.eventLog = nil
	for _, p := range r.players {
		p.IsAlive = true
		p.Role = nil
	}

	log.Printf("Room %s: game reset", r.code)
	r.addEvent("Game has been reset. Ready to start again!")
	r.broadcastState()
	return nil
}

// DisbandRoom ends the room for everyone. The caller is responsible for
// dropping the room from its directory once this succeeds.
func (r *Room) DisbandRoom(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if requesterID != r.host {
		return ErrNotHostDisband
	}

	r.stopLoop()
	r.broadcast(NoticeEvent{Type: EventRoomDisbanded, Message: "The room has been disbanded by the host"})
	if r.gameID != 0 && r.phase != PhaseFinished {
		r.archiveFinish("Room disbanded")
	}
	r.phase = PhaseFinished
	r.phaseDeadline = time.Time{}
	r.closed = true
	log.Printf("Room %s: disbanded by host", r.code)
	return nil
}

// Close stops the phase loop and rejects further operations. It is used
// when the last player leaves.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.stopLoop()
	if r.gameID != 0 && r.phase != PhaseFinished {
		r.archiveFinish("Room abandoned")
	}
	r.closed = true
}

func (r *Room) launchLoop() {
	r.stopLoop()
	ctx, cancel := context.WithCancel(context.Background())
	r.loopCtx = ctx
	r.cancelLoop = cancel
	go r.runPhaseLoop(ctx, r.gen)
}

// stopLoop invalidates the running loop and any pending narration. Must be
// called with r.mu held.
func (r *Room) stopLoop() {
	r.gen++
	if r.cancelLoop != nil {
		r.cancelLoop()
		r.cancelLoop = nil
	}
}

func (r *Room) runPhaseLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(r.settings.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !r.tick(gen) {
			return
		}
	}
}

// tick runs one wake of the phase loop and reports whether the loop should keep going.
func (r *Room) tick(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.closed || r.phase == PhaseFinished {
		return false
	}
	if r.now().Before(r.phaseDeadline) && !r.phaseComplete() {
		return true
	}
	r.endPhase()
	return r.phase != PhaseFinished
}

func (r *Room) phaseComplete() bool {
	switch r.phase {
	case PhaseNight:
		return r.allNightActionsSubmitted()
	case PhaseDay:
		return r.allVotesSubmitted()
	default:
		return false
	}
}

// endPhase resolves the current phase, checks for a winner and otherwise
// opens the next phase.
func (r *Room) endPhase() {
	var dead []string
	ended := r.phase
	switch ended {
	case PhaseNight:
		dead = r.resolveNight()
	case PhaseDay:
		dead = r.resolveDay()
	}
	if len(dead) > 0 {
		r.narrate()
	}

	if r.checkWinConditions() {
		return
	}

	if ended == PhaseNight {
		r.beginDay()
	} else {
		r.beginNight()
	}
}

func (r *Room) beginNight() {
	r.round++
	r.phase = PhaseNight
	r.phaseDeadline = r.now().Add(r.settings.PhaseDuration)
	r.nightActions = make(map[string]string)
	r.killSet = nil
	r.protectSet = nil
	r.chatLog = nil
	DebugLog("Room %s: night %d begins", r.code, r.round)
	r.broadcastState()
}

func (r *Room) beginDay() {
	r.phase = PhaseDay
	r.phaseDeadline = r.now().Add(r.settings.PhaseDuration)
	r.votes = make(map[string]string)
	r.chatLog = nil
	DebugLog("Room %s: day %d begins", r.code, r.round)
	r.broadcastState()
}

// checkWinConditions ends the game if either side has won and reports whether it did.
func (r *Room) checkWinConditions() bool {
	var mafiaCount, townCount int
	for _, p := range r.livingPlayers() {
		if p.isMafia() {
			mafiaCount++
		} else {
			townCount++
		}
	}
	log.Printf("Room %s win check: %d mafia, %d town alive", r.code, mafiaCount, townCount)

	var result string
	switch {
	case mafiaCount == 0:
		result = townWins
	case mafiaCount >= townCount:
		result = mafiaWins
	default:
		return false
	}

	r.addEvent(result)
	r.phase = PhaseFinished
	r.phaseDeadline = time.Time{}
	r.gameResult = result
	r.archiveFinish(result)
	r.broadcastState()
	return true
}

func (r *Room) archiveFinish(result string) {
	if r.settings.Archive == nil || r.gameID == 0 {
		return
	}
	if err := r.settings.Archive.FinishGame(r.gameID, result, r.now()); err != nil {
		logError("archiveFinish", err)
	}
	LogDBState("after game end in room " + r.code)
}
