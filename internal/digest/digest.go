package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/herdworks/yakbot/internal/linear"
	"github.com/herdworks/yakbot/internal/llm"
	"github.com/herdworks/yakbot/internal/state"
)

// NoActiveIssuesMessage is emitted when the snapshot has no issues at
// all. This bypasses the cache entirely; nothing is written.
const NoActiveIssuesMessage = "No active issues in Linear. Either you're crushing it or something is wrong."

// StaleMessage replaces the cached summary once the board has gone
// unchanged for the configured number of runs. It is shown, never
// stored; the cached summary stays the baseline.
const StaleMessage = "The Linear board hasn't moved in days. Yesterday's summary still applies. Go update some issues."

// CacheRecord is the single persisted cache entry. It is overwritten
// whole on every run that touches it.
type CacheRecord struct {
	Fingerprint    string `json:"fingerprint"`
	Text           string `json:"text"`
	UnchangedCount int    `json:"unchanged_count"`
	LastRun        string `json:"last_run"`
}

// Generator runs the scheduled summary path.
type Generator struct {
	llm            llm.Client
	store          *state.Store
	staleThreshold int
	logger         *slog.Logger
	now            func() time.Time // injectable for tests
}

// NewGenerator creates a digest generator. staleThreshold is the number
// of consecutive unchanged runs after which the stale notice replaces
// the cached text.
func NewGenerator(client llm.Client, store *state.Store, staleThreshold int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if staleThreshold < 1 {
		staleThreshold = 3
	}
	return &Generator{
		llm:            client,
		store:          store,
		staleThreshold: staleThreshold,
		logger:         logger,
		now:            time.Now,
	}
}

// Run produces the digest text for one scheduled invocation.
//
// Decision procedure: an empty snapshot short-circuits with a fixed
// notice and no cache write. Otherwise the snapshot fingerprint is
// compared to the stored record: a changed (or absent) fingerprint
// regenerates via the model and resets the unchanged counter; a
// matching fingerprint bumps the counter and reuses the cached text,
// or escalates to the stale notice once the counter reaches the
// threshold.
func (g *Generator) Run(ctx context.Context, snap *linear.Snapshot) (string, error) {
	if len(snap.Issues) == 0 {
		g.logger.Info("digest: no active issues, skipping cache")
		return NoActiveIssuesMessage, nil
	}

	h := Fingerprint(snap)

	var rec CacheRecord
	found, err := g.store.GetJSON(state.KeyDigestCache, &rec)
	if err != nil {
		// An unreadable cache degrades to a regenerate, not a failure.
		g.logger.Warn("digest cache unavailable", "error", err)
		found = false
	}

	if !found || rec.Fingerprint != h {
		text, err := g.generate(ctx, snap)
		if err != nil {
			return "", err
		}
		newRec := CacheRecord{
			Fingerprint:    h,
			Text:           text,
			UnchangedCount: 0,
			LastRun:        g.now().Format("2006-01-02"),
		}
		if err := g.store.SetJSON(state.KeyDigestCache, newRec); err != nil {
			g.logger.Warn("digest cache write failed", "error", err)
		}
		g.logger.Info("digest regenerated", "fingerprint", h[:12])
		return text, nil
	}

	// Unchanged cycle: increment by exactly one and persist. The
	// cached text is retained verbatim even when the stale notice is
	// what gets shown.
	rec.UnchangedCount++
	rec.LastRun = g.now().Format("2006-01-02")
	if err := g.store.SetJSON(state.KeyDigestCache, rec); err != nil {
		g.logger.Warn("digest cache write failed", "error", err)
	}

	if rec.UnchangedCount >= g.staleThreshold {
		g.logger.Info("digest stale escalation", "unchanged_runs", rec.UnchangedCount)
		return StaleMessage, nil
	}

	g.logger.Info("digest cache hit", "unchanged_runs", rec.UnchangedCount)
	return rec.Text, nil
}

// generate asks the model for a fresh summary. The digest path uses no
// tools; it is a single completion over the rendered board.
func (g *Generator) generate(ctx context.Context, snap *linear.Snapshot) (string, error) {
	messages := []llm.Message{
		{
			Role: "system",
			Content: "You write a short morning digest of a Linear board for a small team. " +
				"Group by urgency, call out overdue and unassigned work, keep it under 150 words, plain text only.",
		},
		{Role: "user", Content: renderBoard(snap)},
	}

	resp, err := g.llm.Chat(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("digest generation: %w", err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", fmt.Errorf("digest generation: model returned no text")
	}
	return text, nil
}

// renderBoard lists the open issues for the model.
func renderBoard(snap *linear.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Open issues for team %s:\n", snap.Team.Name)
	for _, iss := range snap.Issues {
		fmt.Fprintf(&sb, "- %s %s (priority %d", iss.Identifier, iss.Title, iss.Priority)
		if iss.State != nil {
			fmt.Fprintf(&sb, ", %s", iss.State.Name)
		}
		if iss.Assignee != nil {
			fmt.Fprintf(&sb, ", %s", iss.Assignee.Name)
		} else {
			sb.WriteString(", unassigned")
		}
		if iss.DueDate != "" {
			fmt.Fprintf(&sb, ", due %s", iss.DueDate)
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}
