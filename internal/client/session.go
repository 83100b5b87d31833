// Package client implements the Threadly client core: a room session over a
// single websocket connection, an optimistic message log reconciled against
// room echoes, a thin REST client for the backend, and a file-backed session
// store for the cached identity.
package client

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/threadly-chat/threadly/internal/server"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	// EventMessage is inbound chat text for the joined room.
	EventMessage EventKind = iota
	// EventRoomJoined confirms the local client's join, once per join cycle.
	EventRoomJoined
	// EventPeerJoined reports another participant joining the room.
	EventPeerJoined
	// EventFailed reports a terminal connection failure.
	EventFailed
)

type Event struct {
	Kind        EventKind
	Room        string
	Text        string
	ClientMsgId string
}

const (
	dialTimeout       = 20 * time.Second
	reconnectAttempts = 5
	reconnectDelay    = time.Second
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrNotJoined    = errors.New("not joined to a room")
	ErrNoRoom       = errors.New("room id cannot be empty")
)

// Session owns one realtime connection and at most one joined room. It is the
// designated owner of the connection handle: whoever holds the session opens
// and closes it, scoped to the authenticated session lifetime rather than any
// single view.
type Session struct {
	url    string
	log    *log.Logger
	dialer *websocket.Dialer

	// reconnection budget; fixed delay, not exponential backoff
	attempts int
	delay    time.Duration

	mu            sync.Mutex
	conn          *websocket.Conn
	state         State
	gen           int
	roomId        string
	pendingJoin   bool
	joinSent      bool
	joinConfirmed bool
	// selfNoticeSeen marks the first legacy join notice of a join cycle,
	// which always refers to the local client's own join
	selfNoticeSeen bool
	connecting     bool
	lastErr        error

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func NewSession(url string, logger *log.Logger) *Session {
	return &Session{
		url: url,
		log: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		attempts: reconnectAttempts,
		delay:    reconnectDelay,
		subs:     make(map[int]func(Event)),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error behind a Failed state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect establishes the connection if one is not already open or being
// established. It is idempotent: rapid repeated calls collapse to a single
// dial attempt. Connecting has no observable side effect until Join is
// called.
func (s *Session) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil || s.connecting {
		return
	}

	s.connecting = true
	s.state = StateConnecting
	s.lastErr = nil
	s.gen++

	go s.dialLoop(s.gen)
}

// dialLoop attempts the dial up to the fixed retry budget with a fixed
// inter-attempt delay. Exhausting the budget is terminal until the caller
// invokes Connect again.
func (s *Session) dialLoop(gen int) {
	var lastErr error
	for attempt := 0; attempt <= s.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.delay)
		}

		if s.stale(gen) {
			return
		}

		conn, _, err := s.dialer.Dial(s.url, nil)
		if err != nil {
			lastErr = err
			s.log.Printf("dial %q: %v", s.url, err)
			continue
		}

		s.mu.Lock()
		if s.gen != gen {
			// the session was disconnected or re-connected while this
			// dial was in flight
			s.mu.Unlock()
			conn.Close()
			return
		}

		s.conn = conn
		s.connecting = false

		// room membership does not survive a transport reconnect; fire the
		// deferred or previously joined room exactly once
		if s.roomId != "" && s.pendingJoin {
			s.pendingJoin = false
			s.joinSent = true
			s.writeLocked(server.Envelope{Event: server.EventJoinRoom, Room: s.roomId})
		}
		s.mu.Unlock()

		go s.readLoop(conn, gen)
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.connecting = false
	s.state = StateFailed
	s.lastErr = lastErr
	s.mu.Unlock()

	s.emit(Event{Kind: EventFailed, Text: "could not connect to chat server"})
}

// Join joins the named room. If the connection is not open yet the join is
// deferred and fired exactly once on the connected transition. Calling Join
// again for the same room before confirmation is a no-op.
func (s *Session) Join(roomId string) error {
	if roomId == "" {
		return ErrNoRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected || s.state == StateFailed {
		return ErrNotConnected
	}

	if s.roomId == roomId && !s.joinConfirmed && (s.pendingJoin || s.joinSent) {
		// a join for this room is already in flight
		return nil
	}

	s.roomId = roomId
	s.joinConfirmed = false
	s.selfNoticeSeen = false
	if s.state == StateJoined {
		// switching rooms drops back to Connecting until the new join is
		// confirmed
		s.state = StateConnecting
	}

	if s.conn == nil {
		s.pendingJoin = true
		s.joinSent = false
		return nil
	}

	s.pendingJoin = false
	s.joinSent = true
	return s.writeLocked(server.Envelope{Event: server.EventJoinRoom, Room: roomId})
}

// Send is fire-and-forget: no delivery confirmation and no retry. It fails
// unless the session has a confirmed room join.
func (s *Session) Send(roomId, text, clientMsgId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrNotConnected
	}
	if s.state != StateJoined || s.roomId != roomId {
		return ErrNotJoined
	}

	return s.writeLocked(server.Envelope{
		Event:       server.EventRoomMessage,
		Room:        roomId,
		Message:     text,
		ClientMsgId: clientMsgId,
	})
}

// OnMessage registers a subscriber for session events and returns its
// unsubscribe func. Subscriptions are additive and independently revocable;
// unsubscribing never closes the connection.
func (s *Session) OnMessage(cb func(Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = cb

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// Disconnect releases the connection. Send and Join fail until Connect is
// called again.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.connecting = false
	s.state = StateDisconnected
	s.roomId = ""
	s.pendingJoin = false
	s.joinSent = false
	s.joinConfirmed = false
	s.selfNoticeSeen = false

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) stale(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

func (s *Session) writeLocked(env server.Envelope) error {
	if err := s.conn.WriteJSON(env); err != nil {
		s.log.Printf("write %q: %v", env.Event, err)
		return err
	}
	return nil
}

func (s *Session) readLoop(conn *websocket.Conn, gen int) {
	for {
		var env server.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			s.handleDisconnect(conn, gen, err)
			return
		}

		if s.stale(gen) {
			return
		}

		s.handleEnvelope(env)
	}
}

// handleDisconnect re-dials after a transport drop. Membership must be
// re-established explicitly, so the previously joined room is marked pending
// before the new dial starts.
func (s *Session) handleDisconnect(conn *websocket.Conn, gen int, err error) {
	conn.Close()

	s.mu.Lock()
	if s.gen != gen {
		// explicit Disconnect or a newer connection owns the session now
		s.mu.Unlock()
		return
	}

	s.log.Printf("connection lost: %v", err)
	s.conn = nil
	s.connecting = true
	s.state = StateConnecting
	s.joinConfirmed = false
	s.joinSent = false
	s.selfNoticeSeen = false
	if s.roomId != "" {
		s.pendingJoin = true
	}
	s.gen++
	gen = s.gen
	s.mu.Unlock()

	s.dialLoop(gen)
}

func (s *Session) handleEnvelope(env server.Envelope) {
	switch env.Event {
	case server.EventRoomJoined:
		s.confirmJoin(env.Room)
	case server.EventRoomMessage:
		s.mu.Lock()
		roomId := s.roomId
		s.mu.Unlock()

		// legacy control signal: the join confirmation is a plain broadcast
		// whose text matches verbatim; the first one after a join refers to
		// the local client, later ones mean another participant joined
		if roomId != "" && env.Message == server.JoinedNotice(roomId) {
			s.mu.Lock()
			first := !s.selfNoticeSeen
			s.selfNoticeSeen = true
			s.mu.Unlock()

			if first {
				s.confirmJoin(roomId)
				return
			}
			s.emit(Event{Kind: EventPeerJoined, Room: roomId})
			return
		}

		s.emit(Event{
			Kind:        EventMessage,
			Room:        env.Room,
			Text:        env.Message,
			ClientMsgId: env.ClientMsgId,
		})
	default:
		s.log.Printf("dropping unknown event %q", env.Event)
	}
}

// confirmJoin transitions Connecting to Joined at most once per join cycle.
// It reports whether this call performed the transition.
func (s *Session) confirmJoin(room string) bool {
	s.mu.Lock()
	if room != s.roomId || s.joinConfirmed {
		s.mu.Unlock()
		return false
	}

	s.joinConfirmed = true
	s.state = StateJoined
	s.mu.Unlock()

	s.emit(Event{Kind: EventRoomJoined, Room: room})
	return true
}

func (s *Session) emit(ev Event) {
	s.subsMu.Lock()
	cbs := make([]func(Event), 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.subsMu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
}
