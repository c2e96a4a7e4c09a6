// Package protocol defines the WebSocket frames exchanged with chat
// viewers (visitor widgets and operator consoles).
package protocol

// Frame types from client to server
const (
	TypeHello = "hello"
)

// Frame types from server to client. Message and session_update frames
// carry the hub event envelope verbatim.
const (
	TypeHelloAck      = "hello_ack"
	TypeMessage       = "message"
	TypeSessionUpdate = "session_update"
	TypeError         = "error"
)

// BaseFrame contains common fields for all frames.
type BaseFrame struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloFrame is sent by a client to subscribe to a session's live
// events. Knowing the session ID is the subscription capability;
// operator authentication happens on the HTTP console routes.
type HelloFrame struct {
	BaseFrame
}

// HelloAckFrame is sent after a successful hello.
type HelloAckFrame struct {
	BaseFrame
}

// ErrorFrame is sent when a request fails.
type ErrorFrame struct {
	BaseFrame
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidFrame    = "invalid_frame"
	ErrorCodeSessionNotFound = "session_not_found"
	ErrorCodeSessionRequired = "session_required"
)
