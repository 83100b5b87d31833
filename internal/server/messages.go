package server

const (
	// Client to server events.
	EventJoinRoom    = "join_room"
	EventRoomMessage = "room_message"
	// Server to client join acknowledgement. Legacy clients ignore this and
	// key off the synthesized "Joined room {room}" broadcast instead.
	EventRoomJoined = "room_joined"
)

// maxMessageLen is the operational cap on message text, in UTF-8 code units.
const maxMessageLen = 4000

// Envelope is the single wire frame for all chat events. Fields not used by
// an event are omitted.
type Envelope struct {
	Event       string `json:"event"`
	Room        string `json:"room,omitempty"`
	Message     string `json:"message,omitempty"`
	ClientMsgId string `json:"client_msg_id,omitempty"`
}

type clientEvent struct {
	env    Envelope
	client *Client
}

// JoinedNotice is the legacy join confirmation text broadcast to a room when
// a participant joins. Clients match it verbatim.
func JoinedNotice(room string) string {
	return "Joined room " + room
}
