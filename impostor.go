// Impostor lobby transport
//
// Every browser holds one websocket at $prefix/ws. The connection is given a
// fresh connection handle; the client names its persistent identity when it
// creates or joins a lobby (falling back to the impostor_id cookie). All
// inbound messages funnel through a single Hub goroutine, which calls into
// the Registry and fans the resulting snapshot out to the lobby's room.
//
// Inbound types: create_lobby, join_lobby, leave_lobby, start_game,
// start_next_round, start_voting, submit_vote, end_game, add_word,
// remove_word, update_settings, kick_player, next_turn, send_message.
//
// Outbound types: session_info (on connect), lobby_update, game_started,
// error_message (requester only), kicked (kicked player only).

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	eventLobbyUpdate  = "lobby_update"
	eventGameStarted  = "game_started"
	eventErrorMessage = "error_message"
	eventKicked       = "kicked"
	eventSessionInfo  = "session_info"

	maxClientMessage = 4096
)

// Messages coming from clients
type ClientMessage struct {
	Type         string    `json:"type"`
	Code         string    `json:"code,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
	PersistentID string    `json:"persistentId,omitempty"`
	VoterID      string    `json:"voterId,omitempty"`
	TargetID     string    `json:"targetId,omitempty"`
	Word         string    `json:"word,omitempty"`
	Text         string    `json:"text,omitempty"`
	Settings     *Settings `json:"settings,omitempty"`
}

// ServerMessage carries a lobby snapshot or an error string.
type ServerMessage struct {
	Type         string    `json:"type"`
	Lobby        *Snapshot `json:"lobby,omitempty"`
	Message      string    `json:"message,omitempty"`
	AllTurnsDone bool      `json:"allTurnsDone,omitempty"`
}

// SessionInfoMessage is sent immediately on connect so the client knows
// which handle the server assigned it.
type SessionInfoMessage struct {
	Type             string `json:"type"`
	ConnectionHandle string `json:"connectionHandle"`
	PersistentID     string `json:"persistentId,omitempty"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	handle   string
	playerID string // cookie fallback for persistent identity
	code     string // lobby this connection sits in, owned by Hub.run
}

type request struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	cfg      *Config
	registry *Registry

	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register  chan *Client
	unreg     chan *Client
	requests  chan request
	evictions chan Eviction
	quit      chan struct{}
}

func newHub(cfg *Config, registry *Registry) *Hub {
	h := &Hub{
		cfg:       cfg,
		registry:  registry,
		clients:   make(map[*Client]bool),
		rooms:     make(map[string]map[*Client]bool),
		register:  make(chan *Client),
		unreg:     make(chan *Client),
		requests:  make(chan request),
		evictions: make(chan Eviction, 64),
		quit:      make(chan struct{}),
	}

	registry.OnEvict(h.queueEviction)

	return h
}

// queueEviction is called from timer goroutines.
func (h *Hub) queueEviction(e Eviction) {
	select {
	case h.evictions <- e:
	case <-h.quit:
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.quit)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.clients[c] = true
			h.sendTo(c, SessionInfoMessage{
				Type:             eventSessionInfo,
				ConnectionHandle: c.handle,
				PersistentID:     c.playerID,
			})

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

			code := c.code
			h.detach(c)
			if code == "" {
				continue
			}

			snap, err := h.registry.Disconnect(c.handle)
			if err == nil {
				h.broadcast(code, ServerMessage{Type: eventLobbyUpdate, Lobby: snap})
			}

		case req := <-h.requests:
			h.handle(req.client, req.msg)

		case e := <-h.evictions:
			h.evicted(e)
		}
	}
}

// evicted fans out the lobby state after a grace-period removal. Requests
// handled since the timer fired may have moved the lobby on, so the
// current snapshot is sent rather than the one taken at eviction time.
func (h *Hub) evicted(e Eviction) {
	logf(h.cfg, "LOBBY: %q removed from %s after grace period", e.DisplayName, e.Code)

	snap, err := h.registry.Snapshot(e.Code)
	if err != nil {
		h.closeRoom(e.Code)
		return
	}
	h.broadcast(e.Code, ServerMessage{Type: eventLobbyUpdate, Lobby: snap})
}

func (h *Hub) attach(c *Client, code string) {
	if c.code == code {
		return
	}
	h.detach(c)

	room, ok := h.rooms[code]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[code] = room
	}
	room[c] = true
	c.code = code
}

func (h *Hub) detach(c *Client) {
	if c.code == "" {
		return
	}
	if room, ok := h.rooms[c.code]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.code)
		}
	}
	c.code = ""
}

func (h *Hub) closeRoom(code string) {
	for c := range h.rooms[code] {
		c.code = ""
	}
	delete(h.rooms, code)
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) broadcast(code string, msg ServerMessage) {
	for c := range h.rooms[code] {
		h.sendTo(c, msg)
	}
}

func (h *Hub) fail(c *Client, err error) {
	h.sendTo(c, ServerMessage{Type: eventErrorMessage, Message: err.Error()})
}

// leaveCurrent takes c out of its current lobby before it moves elsewhere.
func (h *Hub) leaveCurrent(c *Client) {
	code := c.code
	if code == "" {
		return
	}
	h.detach(c)

	snap, err := h.registry.Leave(code, c.handle)
	if err == nil && snap != nil {
		h.broadcast(code, ServerMessage{Type: eventLobbyUpdate, Lobby: snap})
	}
}

func (c *Client) identity(msg ClientMessage) string {
	if msg.PersistentID != "" {
		return msg.PersistentID
	}
	return c.playerID
}

func (h *Hub) handle(c *Client, msg ClientMessage) {
	code := normalizeCode(msg.Code)
	if code == "" {
		code = c.code
	}

	var (
		snap  *Snapshot
		err   error
		event = eventLobbyUpdate
		out   ServerMessage
	)

	switch msg.Type {
	case "create_lobby":
		pid := c.identity(msg)
		if pid == "" {
			h.fail(c, ErrPlayerNotFound)
			return
		}
		h.leaveCurrent(c)
		code, snap = h.registry.Create(c.handle, msg.DisplayName, pid)
		h.attach(c, code)

	case "join_lobby":
		pid := c.identity(msg)
		if pid == "" {
			h.fail(c, ErrPlayerNotFound)
			return
		}
		snap, err = h.registry.Join(code, c.handle, msg.DisplayName, pid)
		if err == nil {
			if c.code != "" && c.code != snap.Code {
				h.leaveCurrent(c)
			}
			h.attach(c, snap.Code)
		}

	case "leave_lobby":
		snap, err = h.registry.Leave(code, c.handle)
		if err == nil {
			h.detach(c)
			if snap == nil {
				h.closeRoom(code)
				return
			}
		}

	case "start_game":
		snap, err = h.registry.StartGame(code, c.handle)
		event = eventGameStarted

	case "start_next_round":
		snap, err = h.registry.NextRound(code, c.handle)
		event = eventGameStarted

	case "start_voting":
		snap, err = h.registry.StartVoting(code, c.handle)

	case "submit_vote":
		voter := msg.VoterID
		if voter == "" {
			voter = c.identity(msg)
		}
		snap, err = h.registry.SubmitVote(code, voter, msg.TargetID)

	case "end_game":
		snap, err = h.registry.EndGame(code, c.handle)

	case "add_word":
		snap, err = h.registry.AddWord(code, c.handle, msg.Word)

	case "remove_word":
		snap, err = h.registry.RemoveWord(code, c.handle, msg.Word)

	case "update_settings":
		if msg.Settings == nil {
			h.fail(c, ErrInvalidSettings)
			return
		}
		snap, err = h.registry.UpdateSettings(code, c.handle, *msg.Settings)

	case "kick_player":
		var kicked string
		snap, kicked, err = h.registry.Kick(code, c.handle, msg.TargetID)
		if err == nil {
			h.kick(kicked)
		}

	case "next_turn":
		snap, out.AllTurnsDone, err = h.registry.NextTurn(code, c.handle)

	case "send_message":
		snap, err = h.registry.SendMessage(code, c.handle, msg.Text)

	default:
		// ignore unknown types
		return
	}

	if err != nil {
		h.fail(c, err)
		return
	}

	out.Type = event
	out.Lobby = snap
	h.broadcast(snap.Code, out)
}

// kick tells the kicked connection it was removed and takes it out of the room.
func (h *Hub) kick(handle string) {
	for c := range h.clients {
		if c.handle != handle {
			continue
		}
		h.sendTo(c, ServerMessage{
			Type:    eventKicked,
			Message: "You have been removed by the host.",
		})
		h.detach(c)
	}
}

// closeAll disconnects every client on shutdown.
func (h *Hub) closeAll() {
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "impostor_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		// The cookie has to ride on the upgrade response itself.
		header := http.Header{}
		if v := w.Header().Values("Set-Cookie"); len(v) > 0 {
			header["Set-Cookie"] = v
			w.Header().Del("Set-Cookie")
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}
		conn.SetReadLimit(maxClientMessage)

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			handle:   uuid.NewString(),
			playerID: playerID,
		}

		logf(cfg, "SERVE: Websocket %s opened from %s", client.handle, realIP(r))

		select {
		case h.register <- client:
		case <-h.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.requests <- request{client: c, msg: msg}:
		case <-h.quit:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler renders a PNG QR code that opens the join link for a lobby.
func qrHandler(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeCode(ps.ByName("code"))
		if !h.registry.Exists(code) {
			http.Error(w, ErrLobbyNotFound.Error(), http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/?code=" + code

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func registerImpostorGame(cfg *Config, h *Hub, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, h))
	mux.GET(cfg.prefix+"/lobby/:code/qr", qrHandler(cfg, h))

	logf(cfg, "SERVE: Websocket endpoint at %s/ws", cfg.prefix)
}
