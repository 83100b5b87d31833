package server

import (
	"log"
	"sync"
	"time"
)

const idleRoomTimeout = time.Minute

type exitReq struct {
	done chan string
}

// Room is a broadcast group addressed by an opaque id. Rooms are created
// lazily on first join and hold no history; the id is the only admission
// check.
type Room struct {
	id            string
	cs            *ChatServer
	joinChan      chan *clientEvent
	leaveChan     chan *Client
	clientMsgChan chan *clientEvent
	clients       map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// killTimer unloads the room once the last client leaves
	killTimer *time.Timer
	exit      chan exitReq
}

func newRoom(id string, cs *ChatServer) *Room {
	return &Room{
		id:            id,
		cs:            cs,
		joinChan:      make(chan *clientEvent, 256),
		leaveChan:     make(chan *Client, 256),
		clientMsgChan: make(chan *clientEvent, 256),
		clients:       make(map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.id)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case client := <-r.leaveChan:
			r.handleLeave(client)
		case msg := <-r.clientMsgChan:
			r.handleMessage(msg)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleJoin(join *clientEvent) {
	r.killTimer.Stop()

	c := join.client
	r.addClient(c)

	// typed acknowledgement for the joining client
	c.queueMessage(&Envelope{
		Event: EventRoomJoined,
		Room:  r.id,
	})

	// legacy join confirmation, broadcast to every member including the
	// joiner; old clients key their joined transition off this exact text
	r.broadcast(&Envelope{
		Event:   EventRoomMessage,
		Room:    r.id,
		Message: JoinedNotice(r.id),
	})

	r.cs.stats.Incr("TotalJoins")
}

func (r *Room) handleLeave(c *Client) {
	r.removeClient(c)
}

// handleMessage rebroadcasts to all members, including the sender. The
// client_msg_id travels with the echo so senders can reconcile by identity.
func (r *Room) handleMessage(msg *clientEvent) {
	r.broadcast(&Envelope{
		Event:       EventRoomMessage,
		Room:        r.id,
		Message:     msg.env.Message,
		ClientMsgId: msg.env.ClientMsgId,
	})

	r.cs.stats.Incr("TotalMessages")
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.id)
	select {
	case r.cs.unloadRoomChan <- r.id:
	default:
		// unload request dropped, retry on the next timeout
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.id)

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.id)
	}
	r.clientLock.Unlock()

	if e.done != nil {
		e.done <- r.id
	}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.id)

	r.log.Printf("removed client from room %q", r.id)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.id)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) broadcast(msg *Envelope) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		client.queueMessage(msg)
	}
}
