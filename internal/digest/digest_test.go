package digest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/herdworks/yakbot/internal/linear"
	"github.com/herdworks/yakbot/internal/llm"
	"github.com/herdworks/yakbot/internal/state"
)

// countingLLM returns a distinct summary per call so tests can tell a
// fresh generation from a cache hit.
type countingLLM struct {
	calls int
	err   error
}

func (c *countingLLM) Chat(context.Context, []llm.Message, []map[string]any) (*llm.ChatResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResponse{
		Message:    llm.Message{Role: "assistant", Content: fmt.Sprintf("summary %d", c.calls)},
		StopReason: "end_turn",
	}, nil
}

func testGenerator(t *testing.T, client llm.Client, threshold int) (*Generator, *state.Store) {
	t.Helper()
	s, err := state.NewStore(filepath.Join(t.TempDir(), "digest_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	g := NewGenerator(client, s, threshold, nil)
	g.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return g, s
}

func digestSnapshot() *linear.Snapshot {
	return snapWith(fingerprintIssues())
}

func TestRunEmptySnapshotSkipsCache(t *testing.T) {
	client := &countingLLM{}
	g, s := testGenerator(t, client, 3)

	text, err := g.Run(context.Background(), snapWith(nil))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if text != NoActiveIssuesMessage {
		t.Errorf("text = %q", text)
	}
	if client.calls != 0 {
		t.Errorf("model calls = %d, want 0", client.calls)
	}

	var rec CacheRecord
	found, err := s.GetJSON(state.KeyDigestCache, &rec)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("cache written for empty snapshot")
	}
}

func TestRunRegeneratesOnChange(t *testing.T) {
	client := &countingLLM{}
	g, s := testGenerator(t, client, 3)

	text, err := g.Run(context.Background(), digestSnapshot())
	if err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if text != "summary 1" {
		t.Errorf("first text = %q", text)
	}

	var rec CacheRecord
	if found, _ := s.GetJSON(state.KeyDigestCache, &rec); !found {
		t.Fatal("cache not written after generation")
	}
	if rec.Text != "summary 1" || rec.UnchangedCount != 0 {
		t.Errorf("record = %+v", rec)
	}

	// A changed board regenerates and resets the counter.
	issues := fingerprintIssues()
	issues[0].Priority = 1
	text, err = g.Run(context.Background(), snapWith(issues))
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if text != "summary 2" {
		t.Errorf("second text = %q, want regeneration", text)
	}
	if found, _ := s.GetJSON(state.KeyDigestCache, &rec); !found || rec.UnchangedCount != 0 {
		t.Errorf("record after change = %+v", rec)
	}
}

func TestRunUnchangedReusesCache(t *testing.T) {
	client := &countingLLM{}
	g, s := testGenerator(t, client, 3)

	if _, err := g.Run(context.Background(), digestSnapshot()); err != nil {
		t.Fatal(err)
	}

	text, err := g.Run(context.Background(), digestSnapshot())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if text != "summary 1" {
		t.Errorf("text = %q, want cached summary", text)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}

	var rec CacheRecord
	if found, _ := s.GetJSON(state.KeyDigestCache, &rec); !found || rec.UnchangedCount != 1 {
		t.Errorf("record = %+v, want unchanged_count 1", rec)
	}
}

func TestRunStaleEscalation(t *testing.T) {
	client := &countingLLM{}
	g, s := testGenerator(t, client, 3)

	// Day zero: the board changes, the summary is generated.
	if _, err := g.Run(context.Background(), digestSnapshot()); err != nil {
		t.Fatal(err)
	}

	// Two quiet days still serve the cached summary.
	for day := 1; day <= 2; day++ {
		text, err := g.Run(context.Background(), digestSnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if text != "summary 1" {
			t.Errorf("day %d text = %q, want cached summary", day, text)
		}
	}

	// The third quiet day crosses the threshold.
	text, err := g.Run(context.Background(), digestSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if text != StaleMessage {
		t.Errorf("day 3 text = %q, want stale notice", text)
	}

	// The stale notice is shown, never stored.
	var rec CacheRecord
	if found, _ := s.GetJSON(state.KeyDigestCache, &rec); !found {
		t.Fatal("record missing")
	}
	if rec.Text != "summary 1" {
		t.Errorf("stored text = %q, cached summary must survive escalation", rec.Text)
	}
	if rec.UnchangedCount != 3 {
		t.Errorf("unchanged_count = %d, want 3", rec.UnchangedCount)
	}

	// A board change afterwards recovers normally.
	issues := fingerprintIssues()
	issues[1].Assignee = &linear.Member{Name: "Dana Moore"}
	text, err = g.Run(context.Background(), snapWith(issues))
	if err != nil {
		t.Fatal(err)
	}
	if text != "summary 2" {
		t.Errorf("post-change text = %q, want regeneration", text)
	}
}

func TestRunModelFailurePreservesCache(t *testing.T) {
	client := &countingLLM{}
	g, s := testGenerator(t, client, 3)

	if _, err := g.Run(context.Background(), digestSnapshot()); err != nil {
		t.Fatal(err)
	}

	client.err = context.DeadlineExceeded
	issues := fingerprintIssues()
	issues[0].DueDate = ""
	if _, err := g.Run(context.Background(), snapWith(issues)); err == nil {
		t.Fatal("Run() = nil error, want model failure")
	}

	// The old record is untouched by the failed regeneration.
	var rec CacheRecord
	if found, _ := s.GetJSON(state.KeyDigestCache, &rec); !found || rec.Text != "summary 1" {
		t.Errorf("record = %+v, want original summary intact", rec)
	}
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "before the hour fires today",
			now:  time.Date(2026, 3, 14, 7, 30, 0, 0, loc),
			hour: 9,
			want: time.Date(2026, 3, 14, 9, 0, 0, 0, loc),
		},
		{
			name: "after the hour fires tomorrow",
			now:  time.Date(2026, 3, 14, 10, 0, 0, 0, loc),
			hour: 9,
			want: time.Date(2026, 3, 15, 9, 0, 0, 0, loc),
		},
		{
			name: "exactly on the hour fires tomorrow",
			now:  time.Date(2026, 3, 14, 9, 0, 0, 0, loc),
			hour: 9,
			want: time.Date(2026, 3, 15, 9, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextRun(tt.now, tt.hour); !got.Equal(tt.want) {
				t.Errorf("nextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}
