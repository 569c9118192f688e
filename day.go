package main

import (
	"fmt"
	"log"
)

// Vote records a living player's one elimination vote for this day.
func (r *Room) Vote(playerID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if r.phase != PhaseDay {
		return ErrNotDayPhase
	}

	voter, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if !voter.IsAlive {
		return ErrDeadPlayer
	}

	target, ok := r.players[targetID]
	if !ok || !target.IsAlive {
		return ErrInvalidTarget
	}

	if _, voted := r.votes[playerID]; voted {
		return ErrAlreadyVoted
	}

	r.votes[playerID] = targetID
	log.Printf("Room %s day %d: '%s' voted to eliminate '%s'", r.code, r.round, voter.Name, target.Name)

	r.broadcast(VoteCastEvent{Type: EventVoteCast, Voter: voter.Name, Target: target.Name})
	r.broadcastState()
	return nil
}

// allVotesSubmitted reports whether every living player has voted.
func (r *Room) allVotesSubmitted() bool {
	for _, p := range r.livingPlayers() {
		if _, ok := r.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// majorityTarget returns the single target whose vote count reaches
// (living+1)/2. It reports false when no target or several targets qualify.
func majorityTarget(votes map[string]string, living int) (string, bool) {
	counts := make(map[string]int)
	for _, target := range votes {
		counts[target]++
	}

	required := (living + 1) / 2
	var qualified []string
	for target, count := range counts {
		if count >= required {
			qualified = append(qualified, target)
		}
	}
	if len(qualified) != 1 {
		return "", false
	}
	return qualified[0], true
}

// resolveDay tallies the votes and eliminates the majority target, if any.
// It returns the names of the players who died.
func (r *Room) resolveDay() []string {
	if len(r.votes) == 0 {
		r.addEvent("No votes were cast.")
		return nil
	}

	living := len(r.livingPlayers())
	targetID, ok := majorityTarget(r.votes, living)
	if !ok {
		log.Printf("Room %s day %d: no consensus (%d votes, %d alive)", r.code, r.round, len(r.votes), living)
		r.addEvent("Failed to reach consensus. No one was eliminated.")
		return nil
	}

	eliminated, ok := r.players[targetID]
	if !ok || eliminated.Role == nil {
		r.addEvent("Failed to reach consensus. No one was eliminated.")
		return nil
	}

	eliminated.IsAlive = false
	log.Printf("Room %s day %d: village eliminated '%s' (%s)", r.code, r.round, eliminated.Name, eliminated.Role.Name())
	r.addEvent(fmt.Sprintf("%s (%s) was voted out and eliminated.", eliminated.Name, eliminated.Role.Name()))
	return []string{eliminated.Name}
}
