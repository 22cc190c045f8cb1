// Package memory holds the bounded conversation history. Only
// human-readable text survives between turns; tool exchanges are
// deliberately not persisted, so each turn starts from clean dialogue.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/herdworks/yakbot/internal/state"
)

// Turn is one utterance in the conversation.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Log is the rolling conversation window. Eviction is FIFO by pair:
// dialogue relevance is about recency of exchange, not access.
type Log struct {
	store    *state.Store
	maxPairs int
	logger   *slog.Logger
}

// NewLog creates a conversation log keeping at most maxPairs
// user/assistant exchange pairs.
func NewLog(store *state.Store, maxPairs int, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{store: store, maxPairs: maxPairs, logger: logger}
}

// Load returns the stored history, oldest first. A missing or corrupt
// record reads as no history.
func (l *Log) Load() ([]Turn, error) {
	var turns []Turn
	found, err := l.store.GetJSON(state.KeyConversation, &turns)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !found {
		return nil, nil
	}
	return turns, nil
}

// Append records one completed exchange (the user's text and the
// final assistant reply), then trims to the most recent maxPairs pairs
// and persists the whole sequence in a single overwrite.
func (l *Log) Append(userText, assistantText string) error {
	turns, err := l.Load()
	if err != nil {
		return err
	}

	turns = append(turns,
		Turn{Role: "user", Content: userText},
		Turn{Role: "assistant", Content: assistantText},
	)

	if max := l.maxPairs * 2; len(turns) > max {
		turns = turns[len(turns)-max:]
	}

	if err := l.store.SetJSON(state.KeyConversation, turns); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}

	l.logger.Debug("conversation appended", "turns", len(turns))
	return nil
}

// Clear drops all history.
func (l *Log) Clear() error {
	return l.store.Delete(state.KeyConversation)
}
