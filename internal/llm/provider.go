package llm

import "context"

// Provider abstracts the chat model that answers document questions. The
// pipeline makes exactly one Complete call per query and expects the reply
// to carry a single JSON object; there is no streaming or tool calling.
type Provider interface {
	// Complete sends one completion request and returns the reply.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the provider, for logs.
	Name() string
}
