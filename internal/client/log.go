package client

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

// MaxMessageLen is the operational cap on message text, in UTF-8 code units.
// Over-long input is rejected at the boundary and never sent.
const MaxMessageLen = 4000

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

// ChatMessage ids are unique per client session only; the transport has no
// concept of message identity across clients.
type ChatMessage struct {
	Id        string
	Text      string
	Origin    Origin
	Timestamp time.Time
}

// MessageLog is the ordered view of a chat: local sends appended
// optimistically before the wire send, remote arrivals appended in arrival
// order, echoes of the client's own sends suppressed.
type MessageLog struct {
	mu      sync.Mutex
	entries []ChatMessage
	// pendingIds tracks local client_msg_ids awaiting their echo
	pendingIds map[string]string
	// recentlySent is the legacy content fallback for echoes without a
	// client_msg_id: a transient multiset consulted once per echo and
	// decremented. Identical texts sent in quick succession can collide;
	// that failure mode is preserved deliberately.
	recentlySent map[string]int
}

func NewMessageLog() *MessageLog {
	return &MessageLog{
		pendingIds:   make(map[string]string),
		recentlySent: make(map[string]int),
	}
}

// AppendLocal validates and appends a locally-originated message before it is
// sent. The returned entry's Id doubles as the wire client_msg_id.
func (l *MessageLog) AppendLocal(text string) (ChatMessage, error) {
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if len(text) > MaxMessageLen {
		return ChatMessage{}, ErrMessageTooLong
	}

	msg := ChatMessage{
		Id:        uuid.NewString(),
		Text:      text,
		Origin:    OriginLocal,
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, msg)
	l.pendingIds[msg.Id] = text
	l.recentlySent[text]++

	return msg, nil
}

// Apply reconciles an inbound session event against the log. It returns the
// appended entry, or false when the event was suppressed: join notices never
// render as chat entries, and echoes of the client's own sends are dropped by
// client_msg_id identity when present, by content match otherwise.
func (l *MessageLog) Apply(ev Event) (ChatMessage, bool) {
	if ev.Kind != EventMessage {
		return ChatMessage{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.ClientMsgId != "" {
		if text, ok := l.pendingIds[ev.ClientMsgId]; ok {
			delete(l.pendingIds, ev.ClientMsgId)
			l.consumeRecent(text)
			return ChatMessage{}, false
		}
	} else if l.recentlySent[ev.Text] > 0 {
		l.consumeRecent(ev.Text)
		return ChatMessage{}, false
	}

	msg := ChatMessage{
		Id:        uuid.NewString(),
		Text:      ev.Text,
		Origin:    OriginRemote,
		Timestamp: time.Now(),
	}
	l.entries = append(l.entries, msg)

	return msg, true
}

func (l *MessageLog) consumeRecent(text string) {
	if l.recentlySent[text] <= 1 {
		delete(l.recentlySent, text)
		return
	}
	l.recentlySent[text]--
}

func (l *MessageLog) Messages() []ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ChatMessage, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the log on room exit.
func (l *MessageLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.pendingIds = make(map[string]string)
	l.recentlySent = make(map[string]int)
}
