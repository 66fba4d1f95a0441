package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/banter-chat/banter/internal/core/domain"
)

// scriptedStreamer is a ChatStreamer whose emissions are driven by the
// test. It counts upstream starts and context cancellations.
type scriptedStreamer struct {
	mu      sync.Mutex
	starts  int
	cancels int

	feed chan []domain.Chat
	fail chan error
}

func newScriptedStreamer() *scriptedStreamer {
	return &scriptedStreamer{
		feed: make(chan []domain.Chat),
		fail: make(chan error, 1),
	}
}

func (s *scriptedStreamer) ObserveChats(ctx context.Context) (<-chan []domain.Chat, <-chan error) {
	s.mu.Lock()
	s.starts++
	s.mu.Unlock()

	out := make(chan []domain.Chat)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				s.cancels++
				s.mu.Unlock()
				return
			case err := <-s.fail:
				errs <- err
				return
			case v := <-s.feed:
				select {
				case out <- v:
				case <-ctx.Done():
					s.mu.Lock()
					s.cancels++
					s.mu.Unlock()
					return
				}
			}
		}
	}()
	return out, errs
}

func (s *scriptedStreamer) counts() (starts, cancels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.cancels
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receiveChats(t *testing.T, ch <-chan []domain.Chat) []domain.Chat {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func snapshot(ids ...string) []domain.Chat {
	chats := make([]domain.Chat, 0, len(ids))
	for _, id := range ids {
		chats = append(chats, domain.Chat{ID: id})
	}
	return chats
}

func newTestChatRepo(s *scriptedStreamer) *ChatRepository {
	return NewChatRepository(
		func(Settings) ChatStreamer { return s },
		Settings{WSURL: "wss://node.test"},
		WithReconfigureDebounce(20*time.Millisecond),
	)
}

func TestChatRepository_SharesOneUpstream(t *testing.T) {
	streamer := newScriptedStreamer()
	r := newTestChatRepo(streamer)
	defer r.Close()

	chA, _, stopA := r.ObserveChats()
	chB, _, stopB := r.ObserveChats()

	if starts, _ := streamer.counts(); starts != 1 {
		t.Fatalf("expected exactly one upstream start for two subscribers, got %d", starts)
	}

	streamer.feed <- snapshot("one")
	if got := receiveChats(t, chA); len(got) != 1 {
		t.Errorf("subscriber A: expected 1 chat, got %d", len(got))
	}
	if got := receiveChats(t, chB); len(got) != 1 {
		t.Errorf("subscriber B: expected 1 chat, got %d", len(got))
	}

	stopA()
	if _, cancels := streamer.counts(); cancels != 0 {
		t.Fatalf("expected no cancellation while a subscriber remains, got %d", cancels)
	}

	stopB()
	waitFor(t, "upstream cancellation", func() bool {
		_, cancels := streamer.counts()
		return cancels == 1
	})
}

func TestChatRepository_ReplaysLatestToLateSubscriber(t *testing.T) {
	streamer := newScriptedStreamer()
	r := newTestChatRepo(streamer)
	defer r.Close()

	chA, _, stopA := r.ObserveChats()
	defer stopA()

	streamer.feed <- snapshot("one", "two")
	receiveChats(t, chA)

	chB, _, stopB := r.ObserveChats()
	defer stopB()

	// No new upstream emission; the cached snapshot must arrive anyway.
	if got := receiveChats(t, chB); len(got) != 2 {
		t.Errorf("late subscriber: expected replayed snapshot of 2, got %d", len(got))
	}
	if starts, _ := streamer.counts(); starts != 1 {
		t.Errorf("late subscriber must not start a second upstream, got %d starts", starts)
	}
}

func TestChatRepository_RestartsAfterIdle(t *testing.T) {
	streamer := newScriptedStreamer()
	r := newTestChatRepo(streamer)
	defer r.Close()

	_, _, stop := r.ObserveChats()
	stop()
	waitFor(t, "idle transition", func() bool {
		_, cancels := streamer.counts()
		return cancels == 1
	})

	_, _, stop2 := r.ObserveChats()
	defer stop2()

	if starts, _ := streamer.counts(); starts != 2 {
		t.Errorf("expected a fresh upstream start after idle, got %d starts", starts)
	}
}

func TestChatRepository_UpstreamErrorFinishesSubscribers(t *testing.T) {
	streamer := newScriptedStreamer()
	r := newTestChatRepo(streamer)
	defer r.Close()

	chA, errsA, stopA := r.ObserveChats()
	defer stopA()
	chB, errsB, stopB := r.ObserveChats()
	defer stopB()

	upstream := errors.New("node dropped the subscription")
	streamer.fail <- upstream

	for name, pair := range map[string]struct {
		ch   <-chan []domain.Chat
		errs <-chan error
	}{
		"A": {chA, errsA},
		"B": {chB, errsB},
	} {
		select {
		case err := <-pair.errs:
			if !errors.Is(err, upstream) {
				t.Errorf("subscriber %s: expected upstream error, got %v", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %s: timed out waiting for error", name)
		}
		waitFor(t, "stream close", func() bool {
			select {
			case _, ok := <-pair.ch:
				return !ok
			default:
				return false
			}
		})
	}

	// Arena cleared: a fresh subscribe starts a fresh upstream.
	_, _, stopC := r.ObserveChats()
	defer stopC()
	waitFor(t, "restart after failure", func() bool {
		starts, _ := streamer.counts()
		return starts == 2
	})
}

func TestChatRepository_ReconfigureDebouncesAndRebuilds(t *testing.T) {
	var (
		mu     sync.Mutex
		builds int
	)
	streamer := newScriptedStreamer()
	build := func(Settings) ChatStreamer {
		mu.Lock()
		builds++
		mu.Unlock()
		return streamer
	}

	r := NewChatRepository(build, Settings{WSURL: "wss://a.test"},
		WithReconfigureDebounce(20*time.Millisecond))
	defer r.Close()

	chA, _, stopA := r.ObserveChats()
	defer stopA()

	streamer.feed <- snapshot("one")
	receiveChats(t, chA)

	// A burst of changes collapses into one rebuild.
	r.Reconfigure(Settings{WSURL: "wss://b.test"})
	r.Reconfigure(Settings{WSURL: "wss://c.test"})
	r.Reconfigure(Settings{WSURL: "wss://d.test"})

	waitFor(t, "debounced rebuild", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return builds == 2
	})
	waitFor(t, "upstream restart", func() bool {
		starts, _ := streamer.counts()
		return starts == 2
	})

	// The rebuild dropped the cached value: a late subscriber gets nothing
	// until the new upstream emits.
	chB, _, stopB := r.ObserveChats()
	defer stopB()
	select {
	case v := <-chB:
		t.Fatalf("expected no replay after re-source, got %v", v)
	case <-time.After(50 * time.Millisecond):
	}

	// Identical settings must not reconnect.
	r.Reconfigure(Settings{WSURL: "wss://d.test"})
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	finalBuilds := builds
	mu.Unlock()
	if finalBuilds != 2 {
		t.Errorf("identical settings triggered a rebuild: %d builds", finalBuilds)
	}
}
