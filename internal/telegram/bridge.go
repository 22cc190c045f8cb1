package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/herdworks/yakbot/internal/linear"
)

// ConversationRunner abstracts the agent loop for testability. The
// real implementation is *agent.Loop.
type ConversationRunner interface {
	Run(ctx context.Context, userText string, snap *linear.Snapshot) (string, error)
}

// SnapshotFetcher abstracts the tracker snapshot fetch. The real
// implementation is *linear.Client.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*linear.Snapshot, error)
}

// Sender abstracts the outbound Bot API calls the bridge makes.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
}

// handleTimeout bounds how long a single inbound message may be
// processed (snapshot fetch + agent loop + reply send).
const handleTimeout = 3 * time.Minute

// trackerDownReply is sent when the snapshot fetch fails and the agent
// loop cannot run with current board state.
const trackerDownReply = "I can't reach Linear right now, so I'd just be guessing. Try again in a minute."

// agentFailedReply is sent when the agent loop itself errors out.
const agentFailedReply = "Something broke on my end while working on that. Try again, and check Linear in case half of it happened."

// BridgeConfig holds the dependencies for a Bridge.
type BridgeConfig struct {
	Sender  Sender
	Runner  ConversationRunner
	Tracker SnapshotFetcher
	ChatID  int64 // the single chat the bot serves; updates from others are dropped
	Logger  *slog.Logger
}

// Bridge routes inbound Telegram updates through the agent loop and
// sends the reply back to the chat. Each update gets a fresh tracker
// snapshot so the model grounds on current board state.
type Bridge struct {
	sender  Sender
	runner  ConversationRunner
	tracker SnapshotFetcher
	chatID  int64
	logger  *slog.Logger
}

// NewBridge creates a Telegram message bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		sender:  cfg.Sender,
		runner:  cfg.Runner,
		tracker: cfg.Tracker,
		chatID:  cfg.ChatID,
		logger:  logger,
	}
}

// HandleUpdate processes one webhook update. Non-text updates and
// updates from chats other than the configured one are dropped
// silently; the webhook endpoint has already acknowledged them.
func (b *Bridge) HandleUpdate(ctx context.Context, upd *Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		b.logger.Debug("telegram ignoring non-text update", "update_id", upd.UpdateID)
		return
	}
	msg := upd.Message

	if msg.Chat.ID != b.chatID {
		b.logger.Warn("telegram dropping update from unexpected chat",
			"chat_id", msg.Chat.ID,
			"update_id", upd.UpdateID,
		)
		return
	}
	if msg.From != nil && msg.From.IsBot {
		b.logger.Debug("telegram ignoring bot message", "update_id", upd.UpdateID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	b.logger.Info("telegram message received",
		"chat_id", msg.Chat.ID,
		"message_len", len(msg.Text),
	)

	// Show typing before the potentially long snapshot + agent work.
	// Best-effort; failure does not prevent processing.
	if err := b.sender.SendTyping(ctx, msg.Chat.ID); err != nil {
		b.logger.Debug("telegram typing indicator failed", "error", err)
	}

	snap, err := b.tracker.FetchSnapshot(ctx)
	if err != nil {
		b.logger.Error("telegram snapshot fetch failed", "error", err)
		b.reply(ctx, msg.Chat.ID, trackerDownReply)
		return
	}

	text, err := b.runner.Run(ctx, msg.Text, snap)
	if err != nil {
		b.logger.Error("telegram agent run failed", "error", err)
		b.reply(ctx, msg.Chat.ID, agentFailedReply)
		return
	}

	b.logger.Info("telegram agent run completed",
		"chat_id", msg.Chat.ID,
		"response_len", len(text),
	)
	b.reply(ctx, msg.Chat.ID, text)
}

// reply sends the outbound text, logging rather than propagating
// failures. By the time reply runs the webhook has been acked and
// there is no caller left to hand the error to.
func (b *Bridge) reply(ctx context.Context, chatID int64, text string) {
	// Use a fresh context so the reply still goes out when the handler
	// context has expired mid-run.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}
	if err := b.sender.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("telegram reply send failed", "chat_id", chatID, "error", err)
	}
}
