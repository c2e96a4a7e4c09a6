package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/xiaot623/chatdesk/internal/adapter/llm"
	"github.com/xiaot623/chatdesk/internal/domain"
	"github.com/xiaot623/chatdesk/policy"
)

// HandleVisitorMessage appends a visitor message and, when the session
// is under automated control, produces the assistant's reply
// asynchronously. The append result is returned immediately so the
// widget can render the visitor's own message without waiting on the
// completion provider.
func (s *Service) HandleVisitorMessage(ctx context.Context, sessionID, content string) (*domain.Message, error) {
	msg, err := s.AppendMessage(ctx, sessionID, domain.SenderVisitor, content)
	if err != nil {
		return nil, err
	}

	go s.produceAutomatedReply(sessionID, msg.Content)

	return msg, nil
}

// produceAutomatedReply is the handoff controller: it re-reads the
// session flags, asks the reply policy whether the assistant may
// answer, invokes the completion provider with a bounded context, and
// appends the result only if the session is still under automated
// control when the completion lands. A reply generated before an
// operator takes over is discarded, never appended.
func (s *Service) produceAutomatedReply(sessionID, content string) {
	// Headroom over the provider timeout for the store round-trips.
	ctx, cancel := context.WithTimeout(context.Background(), s.config.LLMTimeout*2)
	defer cancel()

	// Fresh read: an operator may have taken over at any point since
	// the visitor message was appended.
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: failed to read session %s: %v", sessionID, err)
		return
	}
	if session == nil {
		return
	}

	decision, err := s.policyEngine.Evaluate(ctx, policy.Input{
		Session: policy.SessionInput{
			IsActive:    session.IsActive,
			IsHandedOff: session.IsHandedOff,
		},
		Content: content,
	})
	if err != nil {
		log.Printf("ERROR: reply policy evaluation failed for %s: %v", sessionID, err)
		return
	}
	if decision != policy.DecisionReply {
		// hold: an operator owns the session; reject: it is closed.
		return
	}

	// A history read failure is a store error, not a provider error;
	// it gets no fallback message.
	history, err := s.store.GetRecentMessages(ctx, sessionID, s.config.HistoryWindow)
	if err != nil {
		log.Printf("ERROR: failed to read history for session %s: %v", sessionID, err)
		return
	}

	reply, err := s.complete(ctx, history)
	if err != nil {
		// Provider failures are absorbed: the visitor gets a canned
		// fallback instead of a raw error or a silently stalled chat.
		log.Printf("WARN: completion failed for session %s: %v", sessionID, err)
		reply = s.config.FallbackReply
	}

	s.appendAssistantReply(ctx, sessionID, reply)
}

// complete maps the bounded history to a two-role transcript and calls
// the provider. An empty or malformed payload counts as a failure.
func (s *Service) complete(ctx context.Context, history []domain.Message) (string, error) {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: s.config.SystemPrompt})
	for _, m := range history {
		role := "assistant"
		if m.Sender == domain.SenderVisitor {
			role = "user"
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: m.Content})
	}

	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    s.config.LLMModel,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", errEmptyCompletion
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errEmptyCompletion
	}
	return reply, nil
}

// appendAssistantReply re-checks the session immediately before the
// append and silently discards the reply if control changed while the
// completion was in flight. This narrows, but cannot fully close, the
// race between an operator takeover and an in-flight completion.
func (s *Service) appendAssistantReply(ctx context.Context, sessionID, reply string) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: failed to re-read session %s: %v", sessionID, err)
		return
	}
	if session == nil || session.State() != domain.StateAutomated {
		log.Printf("INFO: discarding stale assistant reply for session %s", sessionID)
		return
	}

	if _, err := s.AppendMessage(ctx, sessionID, domain.SenderAssistant, reply); err != nil {
		log.Printf("ERROR: failed to append assistant reply to %s: %v", sessionID, err)
	}
}

var errEmptyCompletion = errors.New("completion returned no usable content")
