// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"errors"

	"github.com/xiaot623/chatdesk/internal/domain"
)

// ErrNotFound is returned by update operations that reference an
// unknown session. Reads return (nil, nil) for missing rows instead.
var ErrNotFound = errors.New("not found")

// Store defines the interface for data persistence. The store
// serializes concurrent appends to a session.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SetHandoff(ctx context.Context, sessionID string, handedOff bool) error
	CloseSession(ctx context.Context, sessionID string) error
	ListActiveSessions(ctx context.Context) ([]domain.SessionSummary, error)

	// Message operations. CreateMessage also advances the owning
	// session's last_message_at in the same transaction.
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	GetRecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error)

	// Lifecycle
	Close() error
}
