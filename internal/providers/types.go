// Package providers wraps the external LLM collaborator the Interpreter's
// tier-3 planner calls out to (spec §4.2, §6 "external planner"). Only the
// OpenAI-compatible chat-completions transport is wired up — the sole
// concrete Provider this repository ever constructs, in cmd/serve.go when
// planner.endpoint is configured.
package providers

import "context"

// Provider is the minimal contract a planner transport must satisfy.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest contains the input for a Chat call.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
}

// ChatResponse is the result of a Chat call.
type ChatResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"` // "stop", "length", ...
	Usage        *Usage `json:"usage,omitempty"`
}

// Message represents one conversation turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Usage tracks token consumption, surfaced for operator visibility; nothing
// in this repository enforces a budget against it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
