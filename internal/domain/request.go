package domain

// CreateSessionRequest is the payload for opening a new session.
type CreateSessionRequest struct {
	VisitorLabel string `json:"visitor_label,omitempty"`
}

// AppendMessageRequest is the payload for posting a message to a session.
type AppendMessageRequest struct {
	Content string `json:"content"`
}

// SetHandoffRequest toggles operator control of a session.
type SetHandoffRequest struct {
	HandedOff bool `json:"handed_off"`
}
