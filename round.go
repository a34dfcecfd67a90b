/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"slices"
)

const minPlayers = 3

const allTurnsDoneText = "All players have described the word. Host can now start voting."

// shuffle permutes ids in place with Fisher-Yates.
func shuffle(rng randSource, ids []string) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// pickImpostors draws n distinct ids uniformly without replacement.
func pickImpostors(rng randSource, ids []string, n int) []string {
	pool := slices.Clone(ids)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}

// StartGame begins the first round, or a fresh one from the results screen.
func (r *Registry) StartGame(code, handle string) (*Snapshot, error) {
	return r.startRound(code, handle, StatusWaiting, StatusResults)
}

// NextRound starts another round after results are shown. Scores carry over.
func (r *Registry) NextRound(code, handle string) (*Snapshot, error) {
	return r.startRound(code, handle, StatusResults)
}

func (r *Registry) startRound(code, handle string, from ...Status) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if !l.isHost(handle) {
		return nil, ErrNotHost
	}
	if !slices.Contains(from, l.status) {
		return nil, ErrInvalidPhase
	}

	connected := l.connectedIDs()
	switch {
	case len(l.words) == 0:
		return nil, ErrEmptyWordPool
	case len(connected) < 2:
		return nil, ErrNotEnoughPlayers
	case l.settings.ImpostorCount >= len(connected):
		return nil, ErrTooManyImpostors
	case len(connected) < minPlayers:
		return nil, ErrNotEnoughPlayers
	}

	now := r.now()

	l.round++
	l.word = l.words[r.rng.IntN(len(l.words))]
	l.impostorIDs = pickImpostors(r.rng, connected, l.settings.ImpostorCount)

	order := slices.Clone(connected)
	shuffle(r.rng, order)
	l.turnOrder = order
	l.turn = 0

	l.votes = make(map[string]string)
	l.result = nil
	l.messages.reset()
	l.status = StatusPlaying

	l.system(now, "Round %d started! Describe the word without giving it away.", l.round)
	l.system(now, "It's %s's turn to describe!", l.nameOf(l.turnOrder[0]))

	r.logf("Round %d started in %s with %d players", l.round, l.code, len(order))

	return l.snapshot(), nil
}

// NextTurn advances to the next describer. The boolean reports that every
// player in the turn order has had their turn; the host then starts voting.
func (r *Registry) NextTurn(code, handle string) (*Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, false, err
	}
	if !l.isHost(handle) {
		return nil, false, ErrNotHost
	}
	if l.status != StatusPlaying {
		return nil, false, ErrInvalidPhase
	}

	if l.turn >= len(l.turnOrder) {
		return l.snapshot(), true, nil
	}

	l.turn++
	if l.turn == len(l.turnOrder) {
		l.system(r.now(), allTurnsDoneText)
		return l.snapshot(), true, nil
	}

	l.system(r.now(), "It's %s's turn to describe!", l.nameOf(l.turnOrder[l.turn]))

	return l.snapshot(), false, nil
}

// StartVoting opens the voting phase.
func (r *Registry) StartVoting(code, handle string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if !l.isHost(handle) {
		return nil, ErrNotHost
	}
	if l.status != StatusPlaying {
		return nil, ErrInvalidPhase
	}

	l.votes = make(map[string]string)
	l.status = StatusVoting
	l.system(r.now(), "Voting has started. Who is the impostor?")

	return l.snapshot(), nil
}

// SubmitVote records voter's accusation, replacing any earlier vote. Once
// every connected player has voted the round is scored.
func (r *Registry) SubmitVote(code, voterID, targetID string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if l.status != StatusVoting {
		return nil, ErrVotingNotActive
	}
	if l.indexOf(voterID) < 0 || l.indexOf(targetID) < 0 {
		return nil, ErrPlayerNotFound
	}

	l.votes[voterID] = targetID
	r.completeVotingLocked(l)

	return l.snapshot(), nil
}

// turnsOpen reports whether describers are still taking turns.
func (l *Lobby) turnsOpen() bool {
	return l.status == StatusPlaying && l.turn < len(l.turnOrder)
}

// announceTurnsDoneLocked posts the completion notice when a removal took
// the last pending describer out of the turn order.
func (r *Registry) announceTurnsDoneLocked(l *Lobby, wasOpen bool) {
	if wasOpen && !l.turnsOpen() {
		l.system(r.now(), allTurnsDoneText)
	}
}

func (l *Lobby) allConnectedVoted() bool {
	connected := l.connectedIDs()
	if len(connected) == 0 {
		return false
	}
	for _, id := range connected {
		if _, ok := l.votes[id]; !ok {
			return false
		}
	}
	return true
}

// completeVotingLocked scores the round if the lobby is voting and every
// connected player has a vote in. Votes already cast by players who have
// since dropped still count.
func (r *Registry) completeVotingLocked(l *Lobby) bool {
	if l.status != StatusVoting || !l.allConnectedVoted() {
		return false
	}

	result := scoreRound(l.players, l.votes, l.impostorIDs)
	for id, delta := range result.RoundScores {
		l.scores[id] += delta
	}
	l.result = &result
	l.status = StatusResults

	l.system(r.now(), "Voting complete! The word was %q.", l.word)
	r.logf("Round %d scored in %s", l.round, l.code)

	return true
}

// EndGame closes the session. Scores remain visible.
func (r *Registry) EndGame(code, handle string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if !l.isHost(handle) {
		return nil, ErrNotHost
	}
	if l.status != StatusResults {
		return nil, ErrInvalidPhase
	}

	l.status = StatusEnded
	l.system(r.now(), "The game has ended.")

	return l.snapshot(), nil
}
