package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/herdworks/yakbot/internal/httpkit"
)

// MaxMessageLength is the Bot API limit for a single sendMessage text.
const MaxMessageLength = 4096

const defaultAPIBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	token   string
	apiBase string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:   token,
		apiBase: defaultAPIBase,
		http:    httpkit.NewClient(httpkit.WithTimeout(30 * time.Second)),
		logger:  logger,
	}
}

// SetAPIBase overrides the Bot API base URL. Used by tests.
func (c *Client) SetAPIBase(base string) {
	c.apiBase = strings.TrimRight(base, "/")
}

// SendMessage sends text to a chat, splitting it into multiple
// messages when it exceeds the Bot API length limit.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if err := c.call(ctx, "sendMessage", map[string]any{
			"chat_id": chatID,
			"text":    chunk,
		}); err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
	}
	return nil
}

// SendTyping shows the "typing..." indicator in a chat. The indicator
// is transient; Telegram clears it after a few seconds or when a
// message arrives.
func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	if err := c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	}); err != nil {
		return fmt.Errorf("telegram sendChatAction: %w", err)
	}
	return nil
}

// call posts a Bot API method and checks the response envelope.
func (c *Client) call(ctx context.Context, method string, params map[string]any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s: api error %d: %s", method, envelope.ErrorCode, envelope.Description)
	}
	return nil
}

// SplitMessage splits text into chunks of at most limit runes. When a
// chunk must be cut, the cut prefers the last newline in the back half
// of the chunk so paragraphs stay intact; without one the chunk is cut
// hard at the limit.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
