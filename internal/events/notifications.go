package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity of a user-facing message.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Message user-facing notification.
type Message struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier fans out messages to all subscribers via buffered channels.
// Publishing never blocks: a full subscriber misses the message.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[chan Message]struct{}
	buffer int
	now    func() time.Time
}

// NewNotifier creates a notifier with the given per-subscriber buffer.
func NewNotifier(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 64
	}
	return &Notifier{
		subs:   make(map[chan Message]struct{}),
		buffer: buffer,
		now:    time.Now,
	}
}

// Info publishes an informational message.
func (n *Notifier) Info(text string) Message {
	return n.publish(SeverityInfo, text)
}

// Error publishes an error message.
func (n *Notifier) Error(text string) Message {
	return n.publish(SeverityError, text)
}

func (n *Notifier) publish(severity Severity, text string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Severity:  severity,
		Text:      text,
		CreatedAt: n.now().UTC(),
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subs {
		select {
		case ch <- msg:
		default:
			// drop slow consumer
		}
	}
	return msg
}

// Subscribe returns a channel that receives messages until Unsubscribe is called.
func (n *Notifier) Subscribe() chan Message {
	ch := make(chan Message, n.buffer)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Message) {
	n.mu.Lock()
	if _, ok := n.subs[ch]; ok {
		delete(n.subs, ch)
		close(ch)
	}
	n.mu.Unlock()
}
