package domain

import "time"

// Sender identifies who produced a message. It is a closed set; the
// store rejects anything else.
type Sender string

const (
	SenderVisitor   Sender = "visitor"
	SenderAssistant Sender = "assistant"
	SenderOperator  Sender = "operator"
)

// Valid reports whether the sender is one of the known values.
func (s Sender) Valid() bool {
	switch s {
	case SenderVisitor, SenderAssistant, SenderOperator:
		return true
	}
	return false
}

// Message represents a single message in a session. Messages are
// append-only; within one session they are totally ordered by CreatedAt
// with ties broken by insertion order.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
