package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient("TEST:TOKEN", nil)
	c.SetAPIBase(srv.URL)

	if err := c.SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if gotPath != "/botTEST:TOKEN/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != float64(42) || gotBody["text"] != "hello" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSendMessageChunksLongText(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		sent = append(sent, body["text"].(string))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient("t", nil)
	c.SetAPIBase(srv.URL)

	long := strings.Repeat("a", MaxMessageLength) + "\n" + strings.Repeat("b", 100)
	if err := c.SendMessage(context.Background(), 1, long); err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("messages sent = %d, want 2", len(sent))
	}
	for i, text := range sent {
		if len([]rune(text)) > MaxMessageLength {
			t.Errorf("chunk %d exceeds limit: %d runes", i, len([]rune(text)))
		}
	}
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("t", nil)
	c.SetAPIBase(srv.URL)

	err := c.SendMessage(context.Background(), 1, "hi")
	if err == nil {
		t.Fatal("SendMessage() = nil error, want api error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error = %v, want api description surfaced", err)
	}
}

func TestSendTyping(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	c := NewClient("t", nil)
	c.SetAPIBase(srv.URL)

	if err := c.SendTyping(context.Background(), 7); err != nil {
		t.Fatalf("SendTyping() error: %v", err)
	}
	if gotBody["action"] != "typing" {
		t.Errorf("action = %v", gotBody["action"])
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("short text passes through", func(t *testing.T) {
		got := SplitMessage("hello", 10)
		if len(got) != 1 || got[0] != "hello" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("prefers newline in back half", func(t *testing.T) {
		text := "first line\nsecond line that runs long"
		got := SplitMessage(text, 20)
		if got[0] != "first line" {
			t.Errorf("first chunk = %q, want cut at newline", got[0])
		}
	})

	t.Run("hard cut without newline", func(t *testing.T) {
		text := strings.Repeat("x", 25)
		got := SplitMessage(text, 10)
		if len(got) != 3 {
			t.Fatalf("chunks = %d, want 3", len(got))
		}
		if got[0] != strings.Repeat("x", 10) || got[2] != strings.Repeat("x", 5) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("ignores newline in front half", func(t *testing.T) {
		text := "ab\n" + strings.Repeat("c", 20)
		got := SplitMessage(text, 10)
		// The only newline sits at index 2, before the midpoint, so the
		// first chunk is a hard cut.
		if len([]rune(got[0])) != 10 {
			t.Errorf("first chunk = %q, want hard cut at limit", got[0])
		}
	})

	t.Run("no chunk exceeds limit", func(t *testing.T) {
		text := strings.Repeat("word word\n", 50)
		for _, chunk := range SplitMessage(text, 33) {
			if n := len([]rune(chunk)); n > 33 {
				t.Errorf("chunk of %d runes exceeds limit", n)
			}
			if chunk == "" {
				t.Error("empty chunk emitted")
			}
		}
	})
}
