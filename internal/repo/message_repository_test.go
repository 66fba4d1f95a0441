package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
)

type scriptedMessageStreamer struct {
	mu     sync.Mutex
	starts int

	history []domain.ChatMessage
	feed    chan domain.ChatMessageUpdate
}

func newScriptedMessageStreamer() *scriptedMessageStreamer {
	return &scriptedMessageStreamer{feed: make(chan domain.ChatMessageUpdate)}
}

func (s *scriptedMessageStreamer) GetAllMessages(ctx context.Context) ([]domain.ChatMessage, error) {
	return s.history, nil
}

func (s *scriptedMessageStreamer) ObserveUpdates(ctx context.Context) (<-chan domain.ChatMessageUpdate, <-chan error) {
	s.mu.Lock()
	s.starts++
	s.mu.Unlock()

	out := make(chan domain.ChatMessageUpdate)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-s.feed:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, errs
}

func (s *scriptedMessageStreamer) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func TestMessageRepository_IndependentPerChatStreams(t *testing.T) {
	chatX := common.HexToAddress("0x01")
	chatY := common.HexToAddress("0x02")

	streamers := map[common.Address]*scriptedMessageStreamer{
		chatX: newScriptedMessageStreamer(),
		chatY: newScriptedMessageStreamer(),
	}
	build := func(_ Settings, chat common.Address) MessageStreamer {
		return streamers[chat]
	}

	r := NewMessageRepository(build, Settings{WSURL: "wss://node.test"}, 20*time.Millisecond)
	defer r.Close()

	updatesX, _, stopX := r.ObserveUpdates(chatX)
	defer stopX()
	updatesY, _, stopY := r.ObserveUpdates(chatY)
	defer stopY()

	streamers[chatX].feed <- domain.MessageAdded(domain.ChatMessage{ID: "x1", Content: "for x"})

	select {
	case up := <-updatesX:
		if up.Message.ID != "x1" {
			t.Errorf("expected update x1, got %s", up.Message.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat X update")
	}

	select {
	case up := <-updatesY:
		t.Fatalf("chat Y received chat X's update: %v", up)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMessageRepository_SecondObserverSharesUpstream(t *testing.T) {
	chat := common.HexToAddress("0x01")
	streamer := newScriptedMessageStreamer()
	build := func(Settings, common.Address) MessageStreamer { return streamer }

	r := NewMessageRepository(build, Settings{}, 20*time.Millisecond)
	defer r.Close()

	_, _, stopA := r.ObserveUpdates(chat)
	defer stopA()
	_, _, stopB := r.ObserveUpdates(chat)
	defer stopB()

	if got := streamer.startCount(); got != 1 {
		t.Errorf("expected one shared upstream, got %d starts", got)
	}
}

func TestMessageRepository_GetAllMessagesPassthrough(t *testing.T) {
	chat := common.HexToAddress("0x01")
	streamer := newScriptedMessageStreamer()
	streamer.history = []domain.ChatMessage{
		{ID: "m2", Content: "newer"},
		{ID: "m1", Content: "older"},
	}
	build := func(Settings, common.Address) MessageStreamer { return streamer }

	r := NewMessageRepository(build, Settings{}, 20*time.Millisecond)
	defer r.Close()

	msgs, err := r.GetAllMessages(context.Background(), chat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m2" {
		t.Errorf("expected passthrough history, got %v", msgs)
	}
	if streamer.startCount() != 0 {
		t.Errorf("passthrough must not open a subscription, got %d starts", streamer.startCount())
	}
}

func TestMessageRepository_ReconfigureResetsEveryChat(t *testing.T) {
	chatX := common.HexToAddress("0x01")
	chatY := common.HexToAddress("0x02")

	var mu sync.Mutex
	builds := 0
	streamer := newScriptedMessageStreamer()
	build := func(Settings, common.Address) MessageStreamer {
		mu.Lock()
		builds++
		mu.Unlock()
		return streamer
	}

	r := NewMessageRepository(build, Settings{WSURL: "wss://a.test"}, 20*time.Millisecond)
	defer r.Close()

	_, _, stopX := r.ObserveUpdates(chatX)
	defer stopX()
	_, _, stopY := r.ObserveUpdates(chatY)
	defer stopY()

	r.Reconfigure(Settings{WSURL: "wss://b.test"})

	waitFor(t, "per-chat rebuilds", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return builds == 4 // two initial + two rebuilt
	})
	waitFor(t, "per-chat restarts", func() bool {
		return streamer.startCount() == 4
	})
}
