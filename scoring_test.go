/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func players(ids ...string) []Player {
	out := make([]Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, Player{PersistentID: id, DisplayName: "P-" + id, Connected: true})
	}
	return out
}

func TestScoreRound(t *testing.T) {
	tests := []struct {
		name      string
		players   []Player
		votes     map[string]string
		impostors []string
		want      map[string]int
	}{
		{
			name:      "impostor caught",
			players:   players("alice", "bob", "carol"),
			votes:     map[string]string{"alice": "bob", "bob": "carol", "carol": "bob"},
			impostors: []string{"bob"},
			want:      map[string]int{"alice": 10, "bob": 0, "carol": 10},
		},
		{
			name:      "three way tie catches everyone",
			players:   players("alice", "bob", "carol"),
			votes:     map[string]string{"alice": "bob", "bob": "carol", "carol": "alice"},
			impostors: []string{"bob"},
			want:      map[string]int{"alice": 10, "bob": 0, "carol": 0},
		},
		{
			name:      "impostor escapes",
			players:   players("alice", "bob", "carol", "dave"),
			votes:     map[string]string{"alice": "bob", "bob": "carol", "carol": "bob", "dave": "bob"},
			impostors: []string{"dave"},
			want:      map[string]int{"alice": 0, "bob": 0, "carol": 0, "dave": 20},
		},
		{
			name:      "two impostors, one caught",
			players:   players("alice", "bob", "carol", "dave", "erin"),
			votes:     map[string]string{"alice": "bob", "bob": "alice", "carol": "bob", "dave": "carol", "erin": "bob"},
			impostors: []string{"bob", "dave"},
			want:      map[string]int{"alice": 10, "bob": 0, "carol": 10, "dave": 10, "erin": 10},
		},
		{
			name:      "no votes",
			players:   players("alice", "bob", "carol"),
			votes:     map[string]string{},
			impostors: []string{"carol"},
			want:      map[string]int{"alice": 0, "bob": 0, "carol": 0},
		},
		{
			name:      "departed voter still counts",
			players:   players("alice", "bob", "carol"),
			votes:     map[string]string{"gone": "alice", "alice": "carol", "bob": "alice", "carol": "bob"},
			impostors: []string{"carol"},
			want:      map[string]int{"alice": 10, "bob": 0, "carol": 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreRound(tt.players, tt.votes, tt.impostors)
			assert.Equal(t, tt.want, got.RoundScores)

			again := scoreRound(tt.players, tt.votes, tt.impostors)
			assert.Equal(t, got, again, "scoring must be deterministic")
		})
	}
}

func TestScoreRoundDetails(t *testing.T) {
	ps := players("alice", "bob", "carol")
	votes := map[string]string{"alice": "gone", "carol": "bob"}

	got := scoreRound(ps, votes, []string{"bob", "carol"})

	assert.Equal(t, []VoteDetail{
		{VoterID: "alice", VoterName: "P-alice", TargetID: "gone", TargetName: "None"},
		{VoterID: "bob", VoterName: "P-bob", TargetName: "None"},
		{VoterID: "carol", VoterName: "P-carol", TargetID: "bob", TargetName: "P-bob"},
	}, got.VoteDetails)
	assert.Equal(t, []string{"P-bob", "P-carol"}, got.ImpostorNames)
}

func TestMostAccused(t *testing.T) {
	assert.Empty(t, mostAccused(nil))
	assert.Equal(t, map[string]bool{"bob": true}, mostAccused(map[string]string{"a": "bob", "b": "bob", "c": "eve"}))
	assert.Equal(t, map[string]bool{"bob": true, "eve": true}, mostAccused(map[string]string{"a": "bob", "b": "eve"}))
}
