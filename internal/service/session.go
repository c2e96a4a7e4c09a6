package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/chatdesk/internal/domain"
	"github.com/xiaot623/chatdesk/internal/store"
)

// CreateSession opens a new session for a visitor. Every widget open
// gets a fresh session; closed sessions are never reused.
func (s *Service) CreateSession(ctx context.Context, visitorLabel string) (*domain.Session, error) {
	label := strings.TrimSpace(visitorLabel)
	if label == "" {
		label = domain.DefaultVisitorLabel
	}

	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:     "sess_" + uuid.New().String()[:8],
		VisitorLabel:  label,
		IsActive:      true,
		IsHandedOff:   false,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CloseSession marks a session closed. Idempotent: closing a session
// that is already closed is a no-op. CLOSED is terminal.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	err := s.store.CloseSession(ctx, sessionID)
	if err == store.ErrNotFound {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err == nil && session != nil {
		s.hub.PublishSessionUpdate(session)
	}
	return nil
}

// SetHandoff toggles operator control of a session. Operator-only.
// A closed session cannot be handed off; CLOSED is terminal.
func (s *Service) SetHandoff(ctx context.Context, sessionID string, handedOff bool) (*domain.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionClosed
	}

	if err := s.store.SetHandoff(ctx, sessionID, handedOff); err != nil {
		if err == store.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to set handoff: %w", err)
	}

	session.IsHandedOff = handedOff
	s.hub.PublishSessionUpdate(session)
	return session, nil
}

// ListActiveSessions lists sessions for the operator console, most
// recently active first, each annotated with its latest message.
func (s *Service) ListActiveSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	summaries, err := s.store.ListActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return summaries, nil
}
