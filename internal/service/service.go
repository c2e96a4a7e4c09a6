// Package service implements the chat coordination logic: session
// lifecycle, the append-only message channel, and the handoff
// controller that decides who answers a visitor message.
package service

import (
	"errors"

	"github.com/xiaot623/chatdesk/internal/adapter/llm"
	"github.com/xiaot623/chatdesk/internal/config"
	"github.com/xiaot623/chatdesk/internal/hub"
	"github.com/xiaot623/chatdesk/internal/store"
	"github.com/xiaot623/chatdesk/policy"
)

// Validation and lifecycle errors surfaced to the transports.
var (
	ErrEmptyContent    = errors.New("message content is empty")
	ErrInvalidSender   = errors.New("unknown sender")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrNotHandedOff    = errors.New("session is not handed off to an operator")
)

// Service coordinates sessions, messages and the automated responder.
type Service struct {
	store        store.Store
	hub          *hub.Hub
	llmClient    llm.CompletionClient
	policyEngine *policy.Engine
	config       *config.Config
}

// New creates a new Service.
func New(st store.Store, h *hub.Hub, llmClient llm.CompletionClient, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:        st,
		hub:          h,
		llmClient:    llmClient,
		policyEngine: policyEngine,
		config:       cfg,
	}
}

// Hub exposes the fan-out hub to the WebSocket transport.
func (s *Service) Hub() *hub.Hub {
	return s.hub
}
