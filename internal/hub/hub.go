// Package hub provides per-session fan-out of chat events to live
// subscribers (visitor widgets and operator consoles).
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/chatdesk/internal/domain"
)

// Event is the envelope fanned out to every subscriber of a session.
// A subscriber only sees events appended while it is subscribed; history
// is fetched separately and merged client-side, de-duplicated by
// message_id.
type Event struct {
	Type    string          `json:"type"` // "message" or "session_update"
	Ts      int64           `json:"ts"`
	Message *domain.Message `json:"message,omitempty"`
	Session *domain.Session `json:"session,omitempty"`
}

// Event types fanned out on a session channel.
const (
	EventTypeMessage       = "message"
	EventTypeSessionUpdate = "session_update"
)

// Subscriber represents one live viewer of a session. Events are
// delivered through Send in publish order; a single reader drains it.
type Subscriber struct {
	ID        string
	SessionID string
	Send      chan []byte
	hub       *Hub
}

// Unsubscribe releases the subscription. Safe to call multiple times.
func (s *Subscriber) Unsubscribe() {
	s.hub.Unregister(s)
}

// Hub manages all live subscribers.
type Hub struct {
	// Subscribers indexed by subscriber ID
	subscribers map[string]*Subscriber

	// Sessions maps session_id to set of subscriber IDs
	sessions map[string]map[string]bool

	// Channels for registration/unregistration
	register   chan *Subscriber
	unregister chan *Subscriber

	// Broadcast channel for sending to a specific session
	broadcast chan *sessionEvent

	mu sync.RWMutex
}

type sessionEvent struct {
	SessionID string
	Data      []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan *sessionEvent, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID] = sub
			if sub.SessionID != "" {
				if h.sessions[sub.SessionID] == nil {
					h.sessions[sub.SessionID] = make(map[string]bool)
				}
				h.sessions[sub.SessionID][sub.ID] = true
			}
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub.ID]; ok {
				delete(h.subscribers, sub.ID)
				if sub.SessionID != "" && h.sessions[sub.SessionID] != nil {
					delete(h.sessions[sub.SessionID], sub.ID)
					if len(h.sessions[sub.SessionID]) == 0 {
						delete(h.sessions, sub.SessionID)
					}
				}
				close(sub.Send)
			}
			h.mu.Unlock()

		case evt := <-h.broadcast:
			h.mu.RLock()
			if subIDs, ok := h.sessions[evt.SessionID]; ok {
				for subID := range subIDs {
					if sub, exists := h.subscribers[subID]; exists {
						select {
						case sub.Send <- evt.Data:
						default:
							// Buffer full, drop the subscriber
							log.Printf("WARN: subscriber %s buffer full, dropping", subID)
							go h.Unregister(sub)
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewSubscriber creates an unbound subscriber. The caller registers it
// once it knows the session, or binds it via BindSession.
func (h *Hub) NewSubscriber() *Subscriber {
	return &Subscriber{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
		hub:  h,
	}
}

// Register registers a subscriber with the hub.
func (h *Hub) Register(sub *Subscriber) {
	h.register <- sub
}

// Unregister removes a subscriber from the hub.
func (h *Hub) Unregister(sub *Subscriber) {
	h.unregister <- sub
}

// BindSession binds a subscriber to a session, detaching it from any
// previous one.
func (h *Hub) BindSession(sub *Subscriber, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.SessionID != "" && h.sessions[sub.SessionID] != nil {
		delete(h.sessions[sub.SessionID], sub.ID)
		if len(h.sessions[sub.SessionID]) == 0 {
			delete(h.sessions, sub.SessionID)
		}
	}

	sub.SessionID = sessionID
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]bool)
	}
	h.sessions[sessionID][sub.ID] = true
}

// Subscribe registers a callback invoked once per event published to
// the session, in publish order, until Unsubscribe is called. Intended
// for in-process consumers; the WebSocket transport drains Send itself.
func (h *Hub) Subscribe(sessionID string, onEvent func(Event)) *Subscriber {
	sub := h.NewSubscriber()
	sub.SessionID = sessionID
	h.Register(sub)

	go func() {
		for data := range sub.Send {
			var evt Event
			if err := json.Unmarshal(data, &evt); err != nil {
				log.Printf("WARN: dropping malformed hub event: %v", err)
				continue
			}
			onEvent(evt)
		}
	}()

	return sub
}

// PublishMessage fans a newly appended message out to the session's
// subscribers.
func (h *Hub) PublishMessage(msg *domain.Message) {
	h.publish(msg.SessionID, Event{
		Type:    EventTypeMessage,
		Ts:      time.Now().UnixMilli(),
		Message: msg,
	})
}

// PublishSessionUpdate fans a session flag change (handoff, close) out
// to the session's subscribers.
func (h *Hub) PublishSessionUpdate(session *domain.Session) {
	h.publish(session.SessionID, Event{
		Type:    EventTypeSessionUpdate,
		Ts:      time.Now().UnixMilli(),
		Session: session,
	})
}

func (h *Hub) publish(sessionID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ERROR: failed to marshal hub event: %v", err)
		return
	}
	h.broadcast <- &sessionEvent{SessionID: sessionID, Data: data}
}

// SendTo delivers raw data to a single subscriber.
func (h *Hub) SendTo(sub *Subscriber, data []byte) error {
	select {
	case sub.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONTo delivers a JSON payload to a single subscriber.
func (h *Hub) SendJSONTo(sub *Subscriber, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendTo(sub, data)
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// HasSubscribers reports whether a session has any live subscribers.
// Appends to a session nobody watches still succeed; fan-out simply has
// zero listeners.
func (h *Hub) HasSubscribers(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subIDs, ok := h.sessions[sessionID]
	return ok && len(subIDs) > 0
}

// ErrBufferFull is returned when a subscriber's send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a full send buffer.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
