/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"
)

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d elapses.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

type evictionKey struct {
	code     string
	playerID string
}

type eviction struct {
	timer Stopper
}

// Eviction describes a player removed after their grace period ran out.
// Lobby is nil when the removal destroyed the lobby.
type Eviction struct {
	Code         string
	PersistentID string
	DisplayName  string
	Lobby        *Snapshot
}

func (r *Registry) cancelEvictionLocked(code, persistentID string) {
	key := evictionKey{code: code, playerID: persistentID}
	if ev, ok := r.evictions[key]; ok {
		ev.timer.Stop()
		delete(r.evictions, key)
	}
}

// scheduleEvictionLocked starts a grace timer for a player, replacing any
// timer already pending for them.
func (r *Registry) scheduleEvictionLocked(code, persistentID string) {
	r.cancelEvictionLocked(code, persistentID)

	key := evictionKey{code: code, playerID: persistentID}
	ev := &eviction{}
	r.evictions[key] = ev
	ev.timer = r.scheduler.AfterFunc(r.grace, func() {
		r.expire(key, ev)
	})
}

// Disconnect marks the player on handle as disconnected and starts their
// grace timer. The player keeps their seat, score and turn position until
// the timer fires.
func (r *Registry) Disconnect(handle string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.lobbies {
		i := l.indexOfHandle(handle)
		if i < 0 {
			continue
		}

		p := &l.players[i]
		p.Connected = false
		r.scheduleEvictionLocked(l.code, p.PersistentID)

		l.system(r.now(), "%s disconnected. Waiting %s for reconnect...", p.DisplayName, r.grace)
		r.logf("Player %q disconnected from %s", p.DisplayName, l.code)

		r.completeVotingLocked(l)

		return l.snapshot(), nil
	}

	return nil, ErrPlayerNotFound
}

// expire runs when a grace timer fires. A reconnect may have won the race
// for the lock, so the timer must still be the current one for the player
// and the player must still be disconnected before anything is removed.
func (r *Registry) expire(key evictionKey, ev *eviction) {
	r.mu.Lock()

	if r.evictions[key] != ev {
		r.mu.Unlock()
		return
	}
	delete(r.evictions, key)

	l, ok := r.lobbies[key.code]
	if !ok {
		r.mu.Unlock()
		return
	}

	i := l.indexOf(key.playerID)
	if i < 0 || l.players[i].Connected {
		r.mu.Unlock()
		return
	}

	open := l.turnsOpen()
	p, destroyed := r.removeLocked(l, i)
	notice := Eviction{
		Code:         key.code,
		PersistentID: p.PersistentID,
		DisplayName:  p.DisplayName,
	}
	if !destroyed {
		l.system(r.now(), "%s left the game.", p.DisplayName)
		r.announceTurnsDoneLocked(l, open)
		r.completeVotingLocked(l)
		notice.Lobby = l.snapshot()
	}

	r.logf("Evicted %q from %s after %s", p.DisplayName, key.code, r.grace)

	fn := r.onEvict
	r.mu.Unlock()

	if fn != nil {
		fn(notice)
	}
}
