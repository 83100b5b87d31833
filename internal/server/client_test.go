package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/threadly-chat/threadly/internal/stats"
	"github.com/threadly-chat/threadly/internal/testutil"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *Envelope, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&Envelope{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be queued for the client")
		default:
			t.Error("expected a message to be queued for the client, but none was")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *Envelope, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &Envelope{}
		res := c.queueMessage(&Envelope{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func Test_leaveAllRooms(t *testing.T) {
	rooms := []*Room{
		{id: "room1", leaveChan: make(chan *Client, 1)},
		{id: "room2", leaveChan: make(chan *Client, 1)},
	}

	c := &Client{
		rooms: make(map[string]*Room),
		log:   testutil.TestLogger(t),
	}

	for _, room := range rooms {
		c.addRoom(room)
	}

	c.leaveAllRooms()

	for _, room := range rooms {
		select {
		case left := <-room.leaveChan:
			assert.Equal(t, c, left, "expected leave to be sent for room %s", room.id)
		default:
			t.Errorf("expected leave to be sent for room %s, but it was not", room.id)
		}
	}
}

func Test_addRoom_getRoom_delRoom(t *testing.T) {
	c := &Client{rooms: make(map[string]*Room)}
	room := &Room{id: "room1"}

	c.addRoom(room)
	assert.Equal(t, room, c.getRoom("room1"), "expected to retrieve room by id")

	c.delRoom("room1")
	assert.Nil(t, c.getRoom("room1"), "expected room to be gone after delRoom")
}

func Test_dispatch(t *testing.T) {
	cs := newTestChatServer(t, &stats.MockStatsUpdater{})

	t.Run("join routes to chat server", func(t *testing.T) {
		c := &Client{
			chatServer: cs,
			rooms:      make(map[string]*Room),
			log:        testutil.TestLogger(t),
		}

		c.dispatch(Envelope{Event: EventJoinRoom, Room: "room1"})
		select {
		case msg := <-cs.joinChan:
			assert.Equal(t, "room1", msg.env.Room, "expected join to carry the room id")
			assert.Equal(t, c, msg.client, "expected join to carry the client reference")
		default:
			t.Error("expected join to be sent to the chat server join channel")
		}
	})

	t.Run("message routes to joined room", func(t *testing.T) {
		room := &Room{id: "room1", clientMsgChan: make(chan *clientEvent, 1)}
		c := &Client{
			chatServer: cs,
			rooms:      map[string]*Room{room.id: room},
			log:        testutil.TestLogger(t),
		}

		c.dispatch(Envelope{Event: EventRoomMessage, Room: "room1", Message: "hi", ClientMsgId: "cid-1"})
		select {
		case msg := <-room.clientMsgChan:
			assert.Equal(t, "hi", msg.env.Message, "expected message to be routed to the room")
			assert.Equal(t, "cid-1", msg.env.ClientMsgId, "expected client message id to be preserved")
		default:
			t.Error("expected message to be routed to the room")
		}
	})

	t.Run("message to room not joined is dropped", func(t *testing.T) {
		room := &Room{id: "room1", clientMsgChan: make(chan *clientEvent, 1)}
		c := &Client{
			chatServer: cs,
			rooms:      make(map[string]*Room),
			log:        testutil.TestLogger(t),
		}

		c.dispatch(Envelope{Event: EventRoomMessage, Room: "room1", Message: "hi"})
		assert.Len(t, room.clientMsgChan, 0, "expected non-member message to be dropped")
	})

	t.Run("oversized message is dropped", func(t *testing.T) {
		room := &Room{id: "room1", clientMsgChan: make(chan *clientEvent, 1)}
		c := &Client{
			chatServer: cs,
			rooms:      map[string]*Room{room.id: room},
			log:        testutil.TestLogger(t),
		}

		c.dispatch(Envelope{Event: EventRoomMessage, Room: "room1", Message: strings.Repeat("x", maxMessageLen+1)})
		assert.Len(t, room.clientMsgChan, 0, "expected oversized message to be dropped")
	})

	t.Run("event without room is dropped", func(t *testing.T) {
		c := &Client{
			chatServer: cs,
			rooms:      make(map[string]*Room),
			log:        testutil.TestLogger(t),
		}

		c.dispatch(Envelope{Event: EventJoinRoom})
		assert.Len(t, cs.joinChan, 0, "expected join without room to be dropped")
	})

	t.Run("unknown event is dropped", func(t *testing.T) {
		c := &Client{
			chatServer: cs,
			rooms:      make(map[string]*Room),
			log:        testutil.TestLogger(t),
		}

		c.dispatch(Envelope{Event: "bogus", Room: "room1"})
		assert.Len(t, cs.joinChan, 0, "expected unknown event to be dropped")
	})
}
