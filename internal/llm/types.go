// Package llm provides the reasoning model client.
package llm

import (
	"context"
	"log/slog"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message for the model.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall is a single operation request from the model. ID is the
// provider-assigned correlation id; every ToolCall must be answered by
// exactly one tool message carrying the same id.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResponse is the response from the model for one request.
// Wire format conversion happens at the provider boundary (anthropic.go).
type ChatResponse struct {
	Model      string
	Message    Message
	StopReason string

	InputTokens  int
	OutputTokens int
}

// WantsTools reports whether the model requested further operation
// execution. The loop continues exactly while this is true.
func (r *ChatResponse) WantsTools() bool {
	return len(r.Message.ToolCalls) > 0
}

// Client is the reasoning model interface consumed by the agent loop
// and the digest generator. Implemented by [AnthropicClient]; tests
// substitute fakes.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error)
}
