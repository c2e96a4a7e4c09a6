// Package llm provides an abstraction for the completion provider.
package llm

import "context"

// CompletionClient defines the interface for completion provider
// operations. The coordinator only needs single-shot completions; it
// never streams to the visitor widget.
type CompletionClient interface {
	// CreateChatCompletion sends a chat completion request.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Ensure Client implements CompletionClient interface.
var _ CompletionClient = (*Client)(nil)
