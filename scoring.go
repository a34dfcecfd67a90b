/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"maps"
	"slices"
)

const (
	innocentCatchPoints = 10
	impostorFoolPoints  = 5
)

type VoteDetail struct {
	VoterID    string `json:"voterId"`
	VoterName  string `json:"voterName"`
	TargetID   string `json:"targetId,omitempty"`
	TargetName string `json:"targetName"`
}

// RoundResult records what happened in the voting phase of one round.
// RoundScores holds this round's deltas only.
type RoundResult struct {
	RoundScores   map[string]int `json:"roundScores"`
	VoteDetails   []VoteDetail   `json:"voteDetails"`
	ImpostorNames []string       `json:"impostorNames"`
}

func (r *RoundResult) clone() *RoundResult {
	if r == nil {
		return nil
	}
	return &RoundResult{
		RoundScores:   maps.Clone(r.RoundScores),
		VoteDetails:   slices.Clone(r.VoteDetails),
		ImpostorNames: slices.Clone(r.ImpostorNames),
	}
}

// mostAccused returns every target sharing the highest vote count. Ties are
// kept: all tied leaders count as caught. No votes means nobody is caught.
func mostAccused(votes map[string]string) map[string]bool {
	counts := make(map[string]int)
	for _, target := range votes {
		counts[target]++
	}

	top := 0
	for _, n := range counts {
		top = max(top, n)
	}

	caught := make(map[string]bool)
	if top == 0 {
		return caught
	}
	for target, n := range counts {
		if n == top {
			caught[target] = true
		}
	}

	return caught
}

// scoreRound computes the outcome of a voting phase without touching any
// lobby state. Every vote cast counts, including votes from players who have
// since dropped; only seated players receive a delta.
func scoreRound(players []Player, votes map[string]string, impostorIDs []string) RoundResult {
	isImpostor := func(id string) bool {
		return slices.Contains(impostorIDs, id)
	}

	caught := mostAccused(votes)

	innocentVotes := 0
	for _, target := range votes {
		if !isImpostor(target) {
			innocentVotes++
		}
	}

	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.PersistentID] = p.DisplayName
	}
	nameOf := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return "None"
	}

	result := RoundResult{
		RoundScores:   make(map[string]int, len(players)),
		VoteDetails:   make([]VoteDetail, 0, len(players)),
		ImpostorNames: []string{},
	}

	for _, p := range players {
		target, voted := votes[p.PersistentID]

		points := 0
		switch {
		case isImpostor(p.PersistentID):
			if !caught[p.PersistentID] {
				points = innocentVotes * impostorFoolPoints
			}
			result.ImpostorNames = append(result.ImpostorNames, p.DisplayName)
		case voted && isImpostor(target):
			points = innocentCatchPoints
		}
		result.RoundScores[p.PersistentID] = points

		detail := VoteDetail{
			VoterID:    p.PersistentID,
			VoterName:  p.DisplayName,
			TargetName: "None",
		}
		if voted {
			detail.TargetID = target
			detail.TargetName = nameOf(target)
		}
		result.VoteDetails = append(result.VoteDetails, detail)
	}

	return result
}
