package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/chatdesk/internal/adapter/llm"
	"github.com/xiaot623/chatdesk/internal/config"
	"github.com/xiaot623/chatdesk/internal/domain"
	"github.com/xiaot623/chatdesk/internal/hub"
	"github.com/xiaot623/chatdesk/policy"
	"github.com/xiaot623/chatdesk/tests/helpers"
)

const testFallbackReply = "Sorry, a human will get back to you shortly."

func newTestService(t *testing.T, client llm.CompletionClient) *Service {
	t.Helper()
	return newTestServiceWithPolicy(t, client, policy.DefaultPolicy)
}

func newTestServiceWithPolicy(t *testing.T, client llm.CompletionClient, policyContent string) *Service {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)

	h := newRunningHub(t)

	engine, err := policy.NewEngine(context.Background(), policyContent)
	require.NoError(t, err)

	cfg := &config.Config{
		LLMModel:      "test-model",
		LLMTimeout:    2 * time.Second,
		SystemPrompt:  "You are a test assistant.",
		FallbackReply: testFallbackReply,
		HistoryWindow: 8,
	}

	return New(st, h, client, engine, cfg)
}

func newRunningHub(t *testing.T) *hub.Hub {
	t.Helper()
	h := hub.NewHub()
	go h.Run()
	return h
}

// scriptedClient returns a fixed reply and records the requests it saw.
type scriptedClient struct {
	mu      sync.Mutex
	reply   string
	calls   int
	lastReq *llm.ChatCompletionRequest
}

func (c *scriptedClient) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	c.mu.Lock()
	c.calls++
	c.lastReq = req
	c.mu.Unlock()
	return completionOf(req.Model, c.reply), nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedClient) lastRequest() *llm.ChatCompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReq
}

// failingClient always fails, standing in for a provider outage.
type failingClient struct{}

func (c *failingClient) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return nil, errors.New("provider unavailable")
}

// gatedClient blocks inside the completion call until released, so a
// test can change session state while a completion is in flight.
type gatedClient struct {
	started chan struct{}
	release chan struct{}
	reply   string
	once    sync.Once
}

func newGatedClient(reply string) *gatedClient {
	return &gatedClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
		reply:   reply,
	}
}

func (c *gatedClient) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	c.once.Do(func() { close(c.started) })
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return completionOf(req.Model, c.reply), nil
}

func completionOf(model, content string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{
		ID:      fmt.Sprintf("test-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []llm.Choice{
			{
				Index:        0,
				Message:      &llm.ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
	}
}

// waitForMessages polls the session history until it holds n messages.
func waitForMessages(t *testing.T, svc *Service, sessionID string, n int) []domain.Message {
	t.Helper()

	var msgs []domain.Message
	require.Eventually(t, func() bool {
		var err error
		msgs, err = svc.GetMessages(context.Background(), sessionID, 0)
		return err == nil && len(msgs) >= n
	}, 3*time.Second, 10*time.Millisecond, "expected %d messages in session %s", n, sessionID)
	require.Len(t, msgs, n)
	return msgs
}
