package memory

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/herdworks/yakbot/internal/state"
)

func testLog(t *testing.T, maxPairs int) (*Log, *state.Store) {
	t.Helper()
	s, err := state.NewStore(filepath.Join(t.TempDir(), "memory_test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewLog(s, maxPairs, nil), s
}

func TestLoadEmpty(t *testing.T) {
	l, _ := testLog(t, 3)

	turns, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("Load() = %d turns, want 0", len(turns))
	}
}

func TestAppendOrdering(t *testing.T) {
	l, _ := testLog(t, 3)

	if err := l.Append("hello", "hi there"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	turns, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Load() = %d turns, want 2", len(turns))
	}
	if turns[0].Role != "user" || turns[0].Content != "hello" {
		t.Errorf("turns[0] = %+v", turns[0])
	}
	if turns[1].Role != "assistant" || turns[1].Content != "hi there" {
		t.Errorf("turns[1] = %+v", turns[1])
	}
}

func TestAppendTrimsToMaxPairsKeepingTail(t *testing.T) {
	const maxPairs = 3
	l, _ := testLog(t, maxPairs)

	for i := 0; i < maxPairs+4; i++ {
		if err := l.Append(fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i)); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	turns, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(turns) != maxPairs*2 {
		t.Fatalf("Load() = %d turns, want %d", len(turns), maxPairs*2)
	}

	// Oldest-first order preserved within the retained window: the
	// first retained pair is the 5th appended (index 4).
	if turns[0].Content != "u4" {
		t.Errorf("first retained turn = %q, want %q", turns[0].Content, "u4")
	}
	if turns[len(turns)-1].Content != "a6" {
		t.Errorf("last retained turn = %q, want %q", turns[len(turns)-1].Content, "a6")
	}
}

func TestCorruptHistoryReadsAsEmpty(t *testing.T) {
	l, s := testLog(t, 3)

	if err := s.Set(state.KeyConversation, "][ garbage"); err != nil {
		t.Fatal(err)
	}

	turns, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("Load() = %d turns for corrupt record, want 0", len(turns))
	}

	// Appending after corruption starts a fresh history.
	if err := l.Append("u", "a"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	turns, _ = l.Load()
	if len(turns) != 2 {
		t.Errorf("Load() after append = %d turns, want 2", len(turns))
	}
}

func TestClear(t *testing.T) {
	l, _ := testLog(t, 3)

	if err := l.Append("u", "a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	turns, _ := l.Load()
	if len(turns) != 0 {
		t.Errorf("Load() after Clear = %d turns, want 0", len(turns))
	}
}
