/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

type randSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return mrand.IntN(n) }

// Registry owns every live lobby. Each exported method runs to completion
// under a single lock, so no caller ever observes a half-applied change.
type Registry struct {
	mu        sync.Mutex
	lobbies   map[string]*Lobby
	evictions map[evictionKey]*eviction

	words     []string
	grace     time.Duration
	scheduler Scheduler
	rng       randSource
	now       func() time.Time
	logf      func(format string, args ...any)
	onEvict   func(Eviction)
}

func newRegistry(words []string, grace time.Duration) *Registry {
	return &Registry{
		lobbies:   make(map[string]*Lobby),
		evictions: make(map[evictionKey]*eviction),
		words:     words,
		grace:     grace,
		scheduler: clockScheduler{},
		rng:       globalRand{},
		now:       time.Now,
		logf:      func(string, ...any) {},
	}
}

// OnEvict registers the function told about grace-period evictions. It is
// called outside the registry lock.
func (r *Registry) OnEvict(fn func(Eviction)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onEvict = fn
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newLobbyCode() string {
	const limit = 256 - 256%len(codeAlphabet)

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= limit || len(out) == codeLength {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
		}
	}

	return string(out)
}

func (r *Registry) uniqueCodeLocked() string {
	for {
		code := newLobbyCode()
		if _, exists := r.lobbies[code]; !exists {
			return code
		}
	}
}

func (r *Registry) lookupLocked(code string) (*Lobby, error) {
	l, ok := r.lobbies[normalizeCode(code)]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return l, nil
}

// Exists reports whether code names a live lobby.
func (r *Registry) Exists(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.lobbies[normalizeCode(code)]
	return ok
}

// Snapshot returns the current state of a lobby.
func (r *Registry) Snapshot(code string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}
	return l.snapshot(), nil
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultDisplayName
	}
	return name
}

// Create opens a new lobby with the caller as its only player and host.
func (r *Registry) Create(handle, name, persistentID string) (string, *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.uniqueCodeLocked()
	creator := Player{
		PersistentID:     persistentID,
		ConnectionHandle: handle,
		DisplayName:      displayName(name),
		Connected:        true,
	}
	l := newLobby(code, creator, r.words)
	l.system(r.now(), "%s created the lobby.", creator.DisplayName)
	r.lobbies[code] = l

	r.logf("Created lobby %s for %q", code, creator.DisplayName)

	return code, l.snapshot()
}

// Join seats a player in a lobby. A persistent ID already seated is treated
// as a reconnection and is accepted in any phase; new identities may only
// join while the lobby is waiting.
func (r *Registry) Join(code, handle, name, persistentID string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}

	name = displayName(name)

	if i := l.indexOf(persistentID); i >= 0 {
		p := &l.players[i]
		previous, wasConnected := p.ConnectionHandle, p.Connected

		p.ConnectionHandle = handle
		p.DisplayName = name
		p.Connected = true

		r.cancelEvictionLocked(l.code, persistentID)

		if l.host == previous {
			l.host = handle
		}
		if !wasConnected {
			l.system(r.now(), "%s has reconnected.", name)
			r.logf("Player %q reconnected to %s", name, l.code)
		}

		return l.snapshot(), nil
	}

	if l.status != StatusWaiting {
		return nil, ErrGameAlreadyStarted
	}

	l.players = append(l.players, Player{
		PersistentID:     persistentID,
		ConnectionHandle: handle,
		DisplayName:      name,
		Connected:        true,
	})
	if _, ok := l.scores[persistentID]; !ok {
		l.scores[persistentID] = 0
	}
	l.system(r.now(), "%s joined the lobby.", name)

	r.logf("Player %q joined %s", name, l.code)

	return l.snapshot(), nil
}

// removeLocked takes the player at index i out of l for good. It reports
// whether that emptied and destroyed the lobby.
func (r *Registry) removeLocked(l *Lobby, i int) (Player, bool) {
	p := l.removePlayerAt(i)
	r.cancelEvictionLocked(l.code, p.PersistentID)

	if l.empty() {
		delete(r.lobbies, l.code)
		r.logf("Destroyed empty lobby %s", l.code)
		return p, true
	}

	return p, false
}

// Leave removes the player on handle immediately. The returned snapshot is
// nil when the lobby was destroyed because it became empty.
func (r *Registry) Leave(code, handle string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, err
	}

	i := l.indexOfHandle(handle)
	if i < 0 {
		return nil, ErrPlayerNotFound
	}

	open := l.turnsOpen()
	p, destroyed := r.removeLocked(l, i)
	r.logf("Player %q left %s", p.DisplayName, l.code)
	if destroyed {
		return nil, nil
	}

	l.system(r.now(), "%s left the game.", p.DisplayName)
	r.announceTurnsDoneLocked(l, open)
	r.completeVotingLocked(l)

	return l.snapshot(), nil
}

// Kick lets the host remove another player. It also returns the kicked
// player's connection handle so the transport can detach them.
func (r *Registry) Kick(code, handle, targetID string) (*Snapshot, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return nil, "", err
	}
	if !l.isHost(handle) {
		return nil, "", ErrNotHost
	}

	i := l.indexOf(targetID)
	if i < 0 {
		return nil, "", ErrPlayerNotFound
	}
	if l.players[i].ConnectionHandle == handle {
		return nil, "", ErrCannotKickSelf
	}

	open := l.turnsOpen()
	p, _ := r.removeLocked(l, i)
	l.system(r.now(), "%s was removed by the host.", p.DisplayName)
	r.announceTurnsDoneLocked(l, open)
	r.completeVotingLocked(l)

	r.logf("Player %q kicked from %s", p.DisplayName, l.code)

	return l.snapshot(), p.ConnectionHandle, nil
}
