package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinedNotice(t *testing.T) {
	assert.Equal(t, "Joined room 42", JoinedNotice("42"), "expected the verbatim notice text")
}

func TestEnvelopeMarshal(t *testing.T) {
	bytes, err := json.Marshal(Envelope{Event: EventJoinRoom, Room: "42"})
	assert.NoError(t, err, "expected no error during serialization")
	assert.Equal(t, `{"event":"join_room","room":"42"}`, string(bytes),
		"expected unused fields to be omitted from the frame")

	bytes, err = json.Marshal(Envelope{
		Event:       EventRoomMessage,
		Room:        "42",
		Message:     "hi",
		ClientMsgId: "cid-1",
	})
	assert.NoError(t, err, "expected no error during serialization")
	assert.Equal(t, `{"event":"room_message","room":"42","message":"hi","client_msg_id":"cid-1"}`, string(bytes),
		"expected the full frame layout")
}
