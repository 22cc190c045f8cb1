// Package agent implements the tool-calling loop that turns one user
// message into tracker mutations and a conversational reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/herdworks/yakbot/internal/linear"
	"github.com/herdworks/yakbot/internal/llm"
	"github.com/herdworks/yakbot/internal/memory"
	"github.com/herdworks/yakbot/internal/tools"
)

// FallbackReply is returned when the model produces no usable text.
// It is sent directly to the user and must never be empty.
const FallbackReply = "I did some work on that but came back without a proper reply. Check Linear, or ask me again."

// OperationExecutor runs one operation against the snapshot. The real
// implementation is [tools.Executor].
type OperationExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any, snap *linear.Snapshot) tools.Outcome
}

// LoopConfig holds the dependencies for a Loop.
type LoopConfig struct {
	LLM           llm.Client
	Registry      *tools.Registry
	Executor      OperationExecutor
	Memory        *memory.Log
	MaxIterations int
	Logger        *slog.Logger
}

// Loop orchestrates one turn: grounding prompt from the snapshot,
// conversation history, then model round-trips executing requested
// operations until the model answers in plain language or the
// iteration ceiling cuts it off.
type Loop struct {
	llm           llm.Client
	registry      *tools.Registry
	executor      OperationExecutor
	memory        *memory.Log
	maxIterations int
	logger        *slog.Logger
}

// NewLoop creates an agent loop.
func NewLoop(cfg LoopConfig) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIter := cfg.MaxIterations
	if maxIter < 1 {
		maxIter = 8
	}
	return &Loop{
		llm:           cfg.LLM,
		registry:      cfg.Registry,
		executor:      cfg.Executor,
		memory:        cfg.Memory,
		maxIterations: maxIter,
		logger:        logger,
	}
}

// Run processes one user turn against the given snapshot and returns
// the reply text. A returned error means an upstream failure (model or
// tracker transport); the caller reports it to the user and nothing is
// persisted for the turn. All operation-level failures stay inside the
// loop as Failure outcomes the model can react to.
func (l *Loop) Run(ctx context.Context, userText string, snap *linear.Snapshot) (string, error) {
	history, err := l.memory.Load()
	if err != nil {
		// Unreadable history is degraded to an empty one; losing
		// context beats refusing the turn.
		l.logger.Warn("conversation history unavailable", "error", err)
		history = nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: groundingPrompt(snap)})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userText})

	catalog := l.registry.List()

	var last *llm.ChatResponse
	for iteration := 0; iteration < l.maxIterations; iteration++ {
		resp, err := l.llm.Chat(ctx, messages, catalog)
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}
		last = resp

		if !resp.WantsTools() {
			break
		}

		// Every tool_use must be answered by exactly one tool_result
		// with the same id. Synthesize ids the provider omitted before
		// the assistant message is recorded, so request and response
		// always correlate.
		calls := resp.Message.ToolCalls
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = "toolu_" + uuid.NewString()
			}
		}
		messages = append(messages, resp.Message)

		l.logger.Info("model requested operations",
			"iteration", iteration,
			"count", len(calls),
		)

		// Sequential execution in listed order. Operations are
		// independent of each other's output; order matters only for
		// the conversational record.
		for _, call := range calls {
			outcome := l.executor.Execute(ctx, call.Name, call.Arguments, snap)
			l.logger.Debug("operation outcome",
				"operation", tools.Describe(call.Name, call.Arguments),
				"success", outcome.Success,
			)
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    outcome.JSON(),
			})
		}
	}

	reply := finalText(last)

	// Exactly one memory append per completed turn, carrying only the
	// human-readable exchange. Tool traffic is not persisted.
	if err := l.memory.Append(userText, reply); err != nil {
		l.logger.Warn("conversation append failed", "error", err)
	}

	return reply, nil
}

// finalText extracts the reply from the last model response. An
// exhausted iteration ceiling or an empty response degrades to the
// fixed fallback rather than an empty send.
func finalText(resp *llm.ChatResponse) string {
	if resp == nil {
		return FallbackReply
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return FallbackReply
	}
	return text
}
