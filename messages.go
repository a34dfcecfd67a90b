/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	messageCapacity  = 50
	maxMessageLength = 280
)

type MessageKind string

const (
	MessageChat   MessageKind = "chat"
	MessageSystem MessageKind = "system"
)

// Message is one chat or system line in a lobby.
type Message struct {
	PersistentID string      `json:"persistentId,omitempty"`
	DisplayName  string      `json:"displayName"`
	Text         string      `json:"text"`
	Kind         MessageKind `json:"kind"`
	Timestamp    time.Time   `json:"timestamp"`
}

// messageLog keeps the newest messageCapacity entries, oldest first.
type messageLog struct {
	entries []Message
}

func (m *messageLog) append(msg Message) {
	m.entries = append(m.entries, msg)
	if over := len(m.entries) - messageCapacity; over > 0 {
		m.entries = slices.Delete(m.entries, 0, over)
	}
}

func (m *messageLog) reset() {
	m.entries = nil
}

func (m *messageLog) list() []Message {
	return slices.Clone(m.entries)
}

func (l *Lobby) system(now time.Time, format string, args ...any) {
	l.messages.append(Message{
		DisplayName: "System",
		Text:        fmt.Sprintf(format, args...),
		Kind:        MessageSystem,
		Timestamp:   now,
	})
}

func clipMessage(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxMessageLength {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:maxMessageLength]))
}

// SendMessage appends a chat line from the player on handle.
func (r *Registry) SendMessage(code, handle, text string) (*Snapshot, error) {
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

	text = clipMessage(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	l.messages.append(Message{
		PersistentID: l.players[i].PersistentID,
		DisplayName:  l.players[i].DisplayName,
		Text:         text,
		Kind:         MessageChat,
		Timestamp:    r.now(),
	})

	return l.snapshot(), nil
}
