// Package ws provides the WebSocket endpoint through which viewers
// receive live message and session-update events.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/chatdesk/internal/config"
	"github.com/xiaot623/chatdesk/internal/hub"
	"github.com/xiaot623/chatdesk/internal/service"
	"github.com/xiaot623/chatdesk/internal/transport/ws/protocol"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The widget is embedded on arbitrary pages of the site
				return true
			},
		},
	}
}

// client couples a hub subscriber with its WebSocket connection.
type client struct {
	sub  *hub.Subscriber
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
// GET /v1/ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WARN: failed to upgrade WebSocket: %v", err)
		return err
	}

	cl := &client{
		sub:  s.hub.NewSubscriber(),
		conn: conn,
	}
	s.hub.Register(cl.sub)

	conn.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(cl)
	go s.readPump(cl)

	return nil
}

// readPump reads frames from the WebSocket connection. The only
// client-to-server frame is hello; everything else (creating sessions,
// posting messages) goes through the HTTP API.
func (s *Server) readPump(cl *client) {
	defer func() {
		s.hub.Unregister(cl.sub)
		cl.conn.Close()
	}()

	cl.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: WebSocket error: %v", err)
			}
			break
		}

		s.handleFrame(cl, data)
	}
}

// writePump drains the subscriber's event buffer to the socket and
// keeps the connection alive with pings. Events arrive on the Send
// channel in publish order and are written in that order.
func (s *Server) writePump(cl *client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.sub.Send:
			cl.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub dropped the subscriber
				cl.write(websocket.CloseMessage, []byte{})
				return
			}

			if err := cl.write(websocket.TextMessage, data); err != nil {
				log.Printf("WARN: failed to write frame: %v", err)
				return
			}

		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame dispatches an incoming frame.
func (s *Server) handleFrame(cl *client, data []byte) {
	var base protocol.BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(cl, protocol.ErrorCodeInvalidFrame, "invalid JSON frame")
		return
	}

	switch base.Type {
	case protocol.TypeHello:
		s.handleHello(cl, data)
	default:
		s.sendError(cl, protocol.ErrorCodeInvalidFrame, "unknown frame type: "+base.Type)
	}
}

// handleHello binds the connection to a session. The session must
// already exist; a viewer that reconnects fetches history over HTTP and
// de-duplicates against events received here.
func (s *Server) handleHello(cl *client, data []byte) {
	var frame protocol.HelloFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError(cl, protocol.ErrorCodeInvalidFrame, "invalid hello frame")
		return
	}

	if frame.SessionID == "" {
		s.sendError(cl, protocol.ErrorCodeSessionRequired, "session_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.service.GetSession(ctx, frame.SessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			s.sendError(cl, protocol.ErrorCodeSessionNotFound, "unknown session")
		} else {
			s.sendError(cl, protocol.ErrorCodeInvalidFrame, "failed to load session")
		}
		return
	}

	s.hub.BindSession(cl.sub, frame.SessionID)

	ack := protocol.HelloAckFrame{
		BaseFrame: protocol.BaseFrame{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			SessionID: frame.SessionID,
		},
	}
	if err := s.hub.SendJSONTo(cl.sub, ack); err != nil {
		log.Printf("WARN: failed to queue hello_ack: %v", err)
	}
}

// sendError sends an error frame to a single connection.
func (s *Server) sendError(cl *client, code, message string) {
	frame := protocol.ErrorFrame{
		BaseFrame: protocol.BaseFrame{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			SessionID: cl.sub.SessionID,
		},
		Code:    code,
		Message: message,
	}
	if err := s.hub.SendJSONTo(cl.sub, frame); err != nil {
		log.Printf("WARN: failed to queue error frame: %v", err)
	}
}
