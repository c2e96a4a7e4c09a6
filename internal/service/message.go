package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/chatdesk/internal/domain"
)

// AppendMessage validates and persists a message, then fans it out to
// every live subscriber of the session. Messages are append-only; a
// closed session rejects appends from every sender path.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, sender domain.Sender, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionClosed
	}

	msg := &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	s.hub.PublishMessage(msg)
	return msg, nil
}

// AppendOperatorMessage appends a reply from the human operator. Only
// accepted while the session is handed off; the console disables
// sending otherwise, and the server enforces it too.
func (s *Service) AppendOperatorMessage(ctx context.Context, sessionID, content string) (*domain.Message, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionClosed
	}
	if !session.IsHandedOff {
		return nil, ErrNotHandedOff
	}
	return s.AppendMessage(ctx, sessionID, domain.SenderOperator, content)
}

// GetMessages retrieves a session's full history in delivery order.
// Clients merge this with live events, de-duplicating by message_id.
func (s *Service) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	messages, err := s.store.GetMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}
