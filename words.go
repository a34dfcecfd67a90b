/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"slices"
	"strings"
)

var defaultWords = []string{
	"Airport", "Aquarium", "Bakery", "Beach", "Bowling Alley",
	"Campfire", "Carnival", "Casino", "Castle", "Cinema",
	"Circus", "Dentist", "Desert", "Farm", "Fire Station",
	"Gym", "Hospital", "Hot Air Balloon", "Igloo", "Jungle",
	"Library", "Lighthouse", "Museum", "Night Club", "Pirate Ship",
	"Pizza", "Police Station", "Restaurant", "Rollercoaster", "School",
	"Ski Resort", "Space Station", "Spa", "Submarine", "Supermarket",
	"Sushi", "Swimming Pool", "Theater", "Train", "Volcano",
	"Wedding", "Zoo",
}

// dedupeWords trims entries and drops blanks and repeats, keeping first
// occurrence order.
func dedupeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// AddWord appends a word to the lobby's pool. Only the host may edit words.
func (r *Registry) AddWord(code, handle, word string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if !l.isHost(handle) {
		return nil, ErrNotHost
	}

	word = strings.TrimSpace(word)
	if word == "" || slices.Contains(l.words, word) {
		return nil, ErrInvalidWord
	}

	l.words = append(l.words, word)

	return l.snapshot(), nil
}

// RemoveWord drops a word from the lobby's pool.
func (r *Registry) RemoveWord(code, handle, word string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if !l.isHost(handle) {
		return nil, ErrNotHost
	}

	i := slices.Index(l.words, word)
	if i < 0 {
		return nil, ErrInvalidWord
	}

	l.words = slices.Delete(l.words, i, i+1)

	return l.snapshot(), nil
}

// UpdateSettings replaces the lobby settings. Changes are refused mid-round
// so the impostor count always matches the round in progress.
func (r *Registry) UpdateSettings(code, handle string, settings Settings) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	if !l.isHost(handle) {
		return nil, ErrNotHost
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if l.status == StatusPlaying || l.status == StatusVoting {
		return nil, ErrInvalidPhase
	}

	l.settings = settings

	return l.snapshot(), nil
}
