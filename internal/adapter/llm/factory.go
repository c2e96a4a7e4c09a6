package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvChatdeskMode is the environment variable name for mode selection.
	EnvChatdeskMode = "CHATDESK_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewCompletionClient creates a completion client based on the
// CHATDESK_MODE environment variable. If CHATDESK_MODE=MOCK, returns a
// MockClient; otherwise returns a real Client.
func NewCompletionClient(baseURL, apiKey string, timeout time.Duration) CompletionClient {
	mode := os.Getenv(EnvChatdeskMode)

	if mode == ModeMock {
		log.Println("CHATDESK_MODE=MOCK detected, using mock completion client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
