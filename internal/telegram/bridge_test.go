package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/herdworks/yakbot/internal/linear"
)

type fakeSender struct {
	sent    []string
	chats   []int64
	typing  int
	sendErr error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, chatID)
	return f.sendErr
}

func (f *fakeSender) SendTyping(context.Context, int64) error {
	f.typing++
	return nil
}

type fakeRunner struct {
	reply string
	err   error
	runs  int
	got   string
}

func (f *fakeRunner) Run(_ context.Context, userText string, _ *linear.Snapshot) (string, error) {
	f.runs++
	f.got = userText
	return f.reply, f.err
}

type fakeFetcher struct {
	snap    *linear.Snapshot
	err     error
	fetches int
}

func (f *fakeFetcher) FetchSnapshot(context.Context) (*linear.Snapshot, error) {
	f.fetches++
	return f.snap, f.err
}

func testBridge(sender *fakeSender, runner *fakeRunner, fetcher *fakeFetcher) *Bridge {
	return NewBridge(BridgeConfig{
		Sender:  sender,
		Runner:  runner,
		Tracker: fetcher,
		ChatID:  100,
	})
}

func textUpdate(chatID int64, text string) *Update {
	return &Update{
		UpdateID: 1,
		Message: &Message{
			MessageID: 10,
			From:      &User{ID: 5, FirstName: "Dana"},
			Chat:      Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

func TestHandleUpdateRepliesInChat(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{reply: "Marked YAK-1 done."}
	fetcher := &fakeFetcher{snap: &linear.Snapshot{Team: linear.Team{ID: "t1"}}}
	b := testBridge(sender, runner, fetcher)

	b.HandleUpdate(context.Background(), textUpdate(100, "finish yak one"))

	if runner.got != "finish yak one" {
		t.Errorf("runner got %q", runner.got)
	}
	if fetcher.fetches != 1 {
		t.Errorf("fetches = %d, want a fresh snapshot per update", fetcher.fetches)
	}
	if sender.typing != 1 {
		t.Errorf("typing indicators = %d, want 1", sender.typing)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "Marked YAK-1 done." {
		t.Errorf("sent = %v", sender.sent)
	}
	if sender.chats[0] != 100 {
		t.Errorf("reply chat = %d, want 100", sender.chats[0])
	}
}

func TestHandleUpdateDropsUnknownChat(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{reply: "should not run"}
	fetcher := &fakeFetcher{snap: &linear.Snapshot{}}
	b := testBridge(sender, runner, fetcher)

	b.HandleUpdate(context.Background(), textUpdate(999, "hello"))

	if runner.runs != 0 {
		t.Error("agent ran for an unconfigured chat")
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, want silence", sender.sent)
	}
}

func TestHandleUpdateIgnoresNonText(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{}
	b := testBridge(sender, runner, &fakeFetcher{})

	b.HandleUpdate(context.Background(), &Update{UpdateID: 2})
	b.HandleUpdate(context.Background(), &Update{
		UpdateID: 3,
		Message:  &Message{Chat: Chat{ID: 100}},
	})

	if runner.runs != 0 || len(sender.sent) != 0 {
		t.Errorf("runs = %d, sent = %v, want nothing", runner.runs, sender.sent)
	}
}

func TestHandleUpdateIgnoresBotSenders(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{}
	b := testBridge(sender, runner, &fakeFetcher{})

	upd := textUpdate(100, "beep")
	upd.Message.From.IsBot = true
	b.HandleUpdate(context.Background(), upd)

	if runner.runs != 0 {
		t.Error("agent ran for a bot sender")
	}
}

func TestHandleUpdateSnapshotFailure(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{reply: "should not run"}
	fetcher := &fakeFetcher{err: errors.New("linear is down")}
	b := testBridge(sender, runner, fetcher)

	b.HandleUpdate(context.Background(), textUpdate(100, "status?"))

	if runner.runs != 0 {
		t.Error("agent ran without a snapshot")
	}
	if len(sender.sent) != 1 || sender.sent[0] != trackerDownReply {
		t.Errorf("sent = %v, want tracker-down notice", sender.sent)
	}
}

func TestHandleUpdateAgentFailure(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{err: errors.New("model unavailable")}
	fetcher := &fakeFetcher{snap: &linear.Snapshot{}}
	b := testBridge(sender, runner, fetcher)

	b.HandleUpdate(context.Background(), textUpdate(100, "do stuff"))

	if len(sender.sent) != 1 || sender.sent[0] != agentFailedReply {
		t.Errorf("sent = %v, want agent-failed notice", sender.sent)
	}
}
