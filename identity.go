/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Player is one seat in a lobby. PersistentID is chosen by the client and
// survives reconnects; ConnectionHandle names the current transport
// connection and changes every time the client reconnects.
type Player struct {
	PersistentID     string `json:"persistentId"`
	ConnectionHandle string `json:"connectionHandle"`
	DisplayName      string `json:"displayName"`
	Connected        bool   `json:"connected"`
}

const defaultDisplayName = "Player"

func (l *Lobby) indexOf(persistentID string) int {
	for i, p := range l.players {
		if p.PersistentID == persistentID {
			return i
		}
	}
	return -1
}

func (l *Lobby) indexOfHandle(handle string) int {
	for i, p := range l.players {
		if p.ConnectionHandle == handle {
			return i
		}
	}
	return -1
}

func (l *Lobby) isHost(handle string) bool {
	return handle != "" && l.host == handle
}

// nameOf resolves a persistent ID to a display name, or "None" when the
// player is no longer seated.
func (l *Lobby) nameOf(persistentID string) string {
	if i := l.indexOf(persistentID); i >= 0 {
		return l.players[i].DisplayName
	}
	return "None"
}

// connectedIDs returns the persistent IDs of connected players in join order.
func (l *Lobby) connectedIDs() []string {
	ids := make([]string, 0, len(l.players))
	for _, p := range l.players {
		if p.Connected {
			ids = append(ids, p.PersistentID)
		}
	}
	return ids
}
