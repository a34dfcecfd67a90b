/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Type             string    `json:"type"`
	ConnectionHandle string    `json:"connectionHandle"`
	PersistentID     string    `json:"persistentId"`
	Lobby            *Snapshot `json:"lobby"`
	Message          string    `json:"message"`
	AllTurnsDone     bool      `json:"allTurnsDone"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &Config{gracePeriod: time.Minute}
	registry := newRegistry([]string{"Pizza", "Castle", "Volcano"}, cfg.gracePeriod)
	hub := newHub(cfg, registry)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.run(ctx)

	srv := httptest.NewServer(newRouter(cfg, hub, make(chan error, 8)))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return srv
}

type testClient struct {
	t      *testing.T
	conn   *websocket.Conn
	handle string
	cookie string
}

func dial(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &testClient{t: t, conn: conn}
	for _, ck := range resp.Cookies() {
		if ck.Name == playerCookieName {
			c.cookie = ck.Value
		}
	}

	info := c.read()
	require.Equal(t, eventSessionInfo, info.Type)
	require.NotEmpty(t, info.ConnectionHandle)
	c.handle = info.ConnectionHandle

	assert.Equal(t, c.cookie, info.PersistentID)

	return c
}

func (c *testClient) send(msg ClientMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *testClient) read() testEvent {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev testEvent
	require.NoError(c.t, c.conn.ReadJSON(&ev))

	return ev
}

func TestSocketLobbyFlow(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice", PersistentID: "alice"})

	created := alice.read()
	require.Equal(t, eventLobbyUpdate, created.Type)
	require.NotNil(t, created.Lobby)
	code := created.Lobby.Code
	assert.Equal(t, alice.handle, created.Lobby.HostConnectionHandle)

	bob := dial(t, srv)
	bob.send(ClientMessage{Type: "join_lobby", Code: "NOPE00", DisplayName: "Bob", PersistentID: "bob"})

	failed := bob.read()
	assert.Equal(t, eventErrorMessage, failed.Type)
	assert.Equal(t, ErrLobbyNotFound.Error(), failed.Message)

	bob.send(ClientMessage{Type: "join_lobby", Code: strings.ToLower(code), DisplayName: "Bob", PersistentID: "bob"})

	// alice's next event is bob's join, so bob's error never reached her
	for _, c := range []*testClient{alice, bob} {
		ev := c.read()
		require.Equal(t, eventLobbyUpdate, ev.Type)
		assert.Len(t, ev.Lobby.Players, 2)
	}

	bob.send(ClientMessage{Type: "start_game"})
	denied := bob.read()
	assert.Equal(t, eventErrorMessage, denied.Type)
	assert.Equal(t, ErrNotHost.Error(), denied.Message)

	alice.send(ClientMessage{Type: "send_message", Text: "hello"})
	for _, c := range []*testClient{alice, bob} {
		ev := c.read()
		require.Equal(t, eventLobbyUpdate, ev.Type)
		last := ev.Lobby.Messages[len(ev.Lobby.Messages)-1]
		assert.Equal(t, "hello", last.Text)
		assert.Equal(t, MessageChat, last.Kind)
	}

	require.NoError(t, bob.conn.Close())

	dropped := alice.read()
	require.Equal(t, eventLobbyUpdate, dropped.Type)
	require.Len(t, dropped.Lobby.Players, 2)
	assert.False(t, dropped.Lobby.Players[1].Connected)
}

func TestSocketStartGame(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice", PersistentID: "alice"})
	code := alice.read().Lobby.Code

	others := []*testClient{dial(t, srv), dial(t, srv)}
	seated := []*testClient{alice}
	for i, c := range others {
		c.send(ClientMessage{Type: "join_lobby", Code: code, DisplayName: "Guest", PersistentID: []string{"bob", "carol"}[i]})
		seated = append(seated, c)
		for _, s := range seated {
			require.Equal(t, eventLobbyUpdate, s.read().Type)
		}
	}

	alice.send(ClientMessage{Type: "start_game"})
	for _, c := range seated {
		ev := c.read()
		require.Equal(t, eventGameStarted, ev.Type)
		assert.Equal(t, StatusPlaying, ev.Lobby.Status)
		assert.Len(t, ev.Lobby.TurnOrder, 3)
		assert.Len(t, ev.Lobby.ImpostorIDs, 1)
	}

	for i := 0; i < 3; i++ {
		alice.send(ClientMessage{Type: "next_turn"})
		ev := alice.read()
		assert.Equal(t, i == 2, ev.AllTurnsDone)
		for _, c := range others {
			c.read()
		}
	}
}

func TestSocketKick(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice", PersistentID: "alice"})
	code := alice.read().Lobby.Code

	bob := dial(t, srv)
	bob.send(ClientMessage{Type: "join_lobby", Code: code, DisplayName: "Bob", PersistentID: "bob"})
	alice.read()
	bob.read()

	alice.send(ClientMessage{Type: "kick_player", TargetID: "bob"})

	kicked := bob.read()
	assert.Equal(t, eventKicked, kicked.Type)

	update := alice.read()
	require.Equal(t, eventLobbyUpdate, update.Type)
	assert.Len(t, update.Lobby.Players, 1)
}

func TestCookieIdentityFallback(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	require.NotEmpty(t, alice.cookie)

	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice"})
	ev := alice.read()
	require.Equal(t, eventLobbyUpdate, ev.Type)
	assert.Equal(t, alice.cookie, ev.Lobby.HostID)
}

func TestHTTPRoutes(t *testing.T) {
	srv := newTestServer(t)

	get := func(path string) (*http.Response, string) {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp, string(body)
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", body)

	resp, body = get("/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, releaseVersion)

	resp, _ = get("/lobby/NOPE00/qr")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	alice := dial(t, srv)
	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice", PersistentID: "alice"})
	code := alice.read().Lobby.Code

	resp, body = get("/lobby/" + strings.ToLower(code) + "/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestSocketFailedJoinKeepsSeat(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice", PersistentID: "alice"})
	code := alice.read().Lobby.Code

	bob := dial(t, srv)
	bob.send(ClientMessage{Type: "join_lobby", Code: code, DisplayName: "Bob", PersistentID: "bob"})
	alice.read()
	bob.read()

	bob.send(ClientMessage{Type: "join_lobby", Code: "ZZZZZ9", DisplayName: "Bob", PersistentID: "bob"})
	failed := bob.read()
	assert.Equal(t, eventErrorMessage, failed.Type)
	assert.Equal(t, ErrLobbyNotFound.Error(), failed.Message)

	// a lone host mistyping a code must not destroy their lobby either
	carol := dial(t, srv)
	carol.send(ClientMessage{Type: "create_lobby", DisplayName: "Carol", PersistentID: "carol"})
	solo := carol.read().Lobby.Code
	carol.send(ClientMessage{Type: "join_lobby", Code: "ZZZZZ9", PersistentID: "carol"})
	assert.Equal(t, eventErrorMessage, carol.read().Type)

	// the next event either of them sees is this chat line, with bob still seated
	bob.send(ClientMessage{Type: "send_message", Text: "still here"})
	for _, c := range []*testClient{alice, bob} {
		ev := c.read()
		require.Equal(t, eventLobbyUpdate, ev.Type)
		assert.Equal(t, []string{"alice", "bob"}, playerIDs(ev.Lobby))
		assert.Equal(t, "still here", ev.Lobby.Messages[len(ev.Lobby.Messages)-1].Text)
	}

	carol.send(ClientMessage{Type: "send_message", Text: "hi"})
	ev := carol.read()
	require.Equal(t, eventLobbyUpdate, ev.Type)
	assert.Equal(t, solo, ev.Lobby.Code)
	assert.Equal(t, []string{"carol"}, playerIDs(ev.Lobby))
}

func TestSocketJoinMovesBetweenLobbies(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	alice.send(ClientMessage{Type: "create_lobby", DisplayName: "Alice", PersistentID: "alice"})
	first := alice.read().Lobby.Code

	carol := dial(t, srv)
	carol.send(ClientMessage{Type: "create_lobby", DisplayName: "Carol", PersistentID: "carol"})
	second := carol.read().Lobby.Code

	bob := dial(t, srv)
	bob.send(ClientMessage{Type: "join_lobby", Code: first, DisplayName: "Bob", PersistentID: "bob"})
	alice.read()
	bob.read()

	bob.send(ClientMessage{Type: "join_lobby", Code: second, DisplayName: "Bob", PersistentID: "bob"})

	left := alice.read()
	require.Equal(t, eventLobbyUpdate, left.Type)
	assert.Equal(t, []string{"alice"}, playerIDs(left.Lobby))

	for _, c := range []*testClient{bob, carol} {
		ev := c.read()
		require.Equal(t, eventLobbyUpdate, ev.Type)
		assert.Equal(t, second, ev.Lobby.Code)
		assert.Equal(t, []string{"carol", "bob"}, playerIDs(ev.Lobby))
	}
}

func TestEvictionBroadcastsCurrentLobby(t *testing.T) {
	r, sched := newTestRegistry(t)
	h := newHub(&Config{}, r)
	code := seat(t, r, "alice", "bob", "carol")

	alice := &Client{send: make(chan any, 4), handle: "conn-alice"}
	h.clients[alice] = true
	h.attach(alice, code)

	_, err := r.Disconnect("conn-bob")
	require.NoError(t, err)
	sched.fire(0)
	require.Len(t, h.evictions, 1)

	// a request lands before the hub gets to the queued eviction
	_, err = r.SendMessage(code, "conn-alice", "anyone there?")
	require.NoError(t, err)

	e := <-h.evictions
	assert.NotEqual(t, "anyone there?", e.Lobby.Messages[len(e.Lobby.Messages)-1].Text)

	h.evicted(e)

	require.Len(t, alice.send, 1)
	msg, ok := (<-alice.send).(ServerMessage)
	require.True(t, ok)
	assert.Equal(t, eventLobbyUpdate, msg.Type)
	assert.Equal(t, []string{"alice", "carol"}, playerIDs(msg.Lobby))
	assert.Equal(t, "anyone there?", msg.Lobby.Messages[len(msg.Lobby.Messages)-1].Text)
}

func TestEvictionClosesDestroyedRoom(t *testing.T) {
	r, sched := newTestRegistry(t)
	h := newHub(&Config{}, r)
	code := seat(t, r, "alice")

	alice := &Client{send: make(chan any, 4), handle: "conn-alice"}
	h.clients[alice] = true
	h.attach(alice, code)

	_, err := r.Disconnect("conn-alice")
	require.NoError(t, err)
	sched.fire(0)

	h.evicted(<-h.evictions)

	assert.Empty(t, alice.send)
	assert.Empty(t, alice.code)
	assert.NotContains(t, h.rooms, code)
}
