/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"maps"
	"slices"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusVoting  Status = "voting"
	StatusResults Status = "results"
	StatusEnded   Status = "ended"
)

type Settings struct {
	ImpostorCount int `json:"impostorCount"`
}

func (s Settings) validate() error {
	if s.ImpostorCount < 1 {
		return ErrInvalidSettings
	}
	return nil
}

// Lobby is one game room. It is only touched while the owning Registry's
// lock is held.
type Lobby struct {
	code     string
	host     string // connection handle
	status   Status
	players  []Player
	words    []string
	settings Settings

	round       int
	word        string
	impostorIDs []string
	turnOrder   []string
	turn        int

	votes    map[string]string // voter -> target
	scores   map[string]int
	result   *RoundResult
	messages messageLog
}

func newLobby(code string, creator Player, words []string) *Lobby {
	return &Lobby{
		code:     code,
		host:     creator.ConnectionHandle,
		status:   StatusWaiting,
		players:  []Player{creator},
		words:    slices.Clone(words),
		settings: Settings{ImpostorCount: 1},
		votes:    make(map[string]string),
		scores:   map[string]int{creator.PersistentID: 0},
	}
}

// shiftCursor returns where a cursor into a sequence points after the
// element at removed is deleted. The cursor keeps following the same
// element, so it only moves when the removed element came before it.
func shiftCursor(cursor, removed int) int {
	if removed < cursor {
		return cursor - 1
	}
	return cursor
}

func (l *Lobby) removeFromTurnOrder(persistentID string) {
	i := slices.Index(l.turnOrder, persistentID)
	if i < 0 {
		return
	}
	l.turnOrder = slices.Delete(l.turnOrder, i, i+1)
	l.turn = shiftCursor(l.turn, i)
}

// removePlayerAt drops the player at index i from the lobby, keeping the
// turn cursor on the same player and handing the host role to the earliest
// remaining joiner when the host leaves. It reports the removed player.
func (l *Lobby) removePlayerAt(i int) Player {
	p := l.players[i]
	l.players = slices.Delete(l.players, i, i+1)
	l.removeFromTurnOrder(p.PersistentID)

	if len(l.players) > 0 && l.indexOfHandle(l.host) < 0 {
		l.host = l.players[0].ConnectionHandle
	}

	return p
}

func (l *Lobby) empty() bool {
	return len(l.players) == 0
}

// Snapshot is a deep copy of a Lobby, safe to hand to the transport.
type Snapshot struct {
	Code                 string            `json:"code"`
	HostConnectionHandle string            `json:"hostConnectionHandle"`
	HostID               string            `json:"hostId"`
	Status               Status            `json:"status"`
	Players              []Player          `json:"players"`
	Words                []string          `json:"words"`
	Settings             Settings          `json:"settings"`
	Round                int               `json:"round"`
	CurrentWord          string            `json:"currentWord,omitempty"`
	ImpostorIDs          []string          `json:"impostorIds"`
	TurnOrder            []string          `json:"turnOrder"`
	CurrentTurnIndex     int               `json:"currentTurnIndex"`
	Votes                map[string]string `json:"votes"`
	Scores               map[string]int    `json:"scores"`
	RoundResult          *RoundResult      `json:"roundResult,omitempty"`
	Messages             []Message         `json:"messages"`
}

func (l *Lobby) snapshot() *Snapshot {
	s := &Snapshot{
		Code:                 l.code,
		HostConnectionHandle: l.host,
		Status:               l.status,
		Players:              slices.Clone(l.players),
		Words:                slices.Clone(l.words),
		Settings:             l.settings,
		Round:                l.round,
		CurrentWord:          l.word,
		ImpostorIDs:          slices.Clone(l.impostorIDs),
		TurnOrder:            slices.Clone(l.turnOrder),
		CurrentTurnIndex:     l.turn,
		Votes:                maps.Clone(l.votes),
		Scores:               maps.Clone(l.scores),
		RoundResult:          l.result.clone(),
		Messages:             l.messages.list(),
	}

	if i := l.indexOfHandle(l.host); i >= 0 {
		s.HostID = l.players[i].PersistentID
	}

	return s
}
