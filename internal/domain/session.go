// Package domain defines the core domain models for the chat coordinator.
package domain

import "time"

// SessionState represents the lifecycle state of a session.
type SessionState string

const (
	// StateAutomated means the assistant answers visitor messages.
	StateAutomated SessionState = "AUTOMATED"
	// StateHuman means an operator has taken over and answers manually.
	StateHuman SessionState = "HUMAN"
	// StateClosed is terminal; a closed session never reopens.
	StateClosed SessionState = "CLOSED"
)

// DefaultVisitorLabel is used when a visitor gives no display name.
const DefaultVisitorLabel = "Guest"

// Session represents one visitor's chat conversation.
type Session struct {
	SessionID     string    `json:"session_id"`
	VisitorLabel  string    `json:"visitor_label"`
	IsActive      bool      `json:"is_active"`
	IsHandedOff   bool      `json:"is_handed_off"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// State derives the three-state machine position from the two flags.
func (s *Session) State() SessionState {
	if !s.IsActive {
		return StateClosed
	}
	if s.IsHandedOff {
		return StateHuman
	}
	return StateAutomated
}

// SessionSummary is a session annotated with its most recent message,
// as shown in the operator console list.
type SessionSummary struct {
	Session
	LastMessage *Message `json:"last_message,omitempty"`
}
