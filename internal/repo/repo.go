package repo

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
)

// Settings are the connection parameters a repository sources against.
// Changing any of them invalidates the current upstream.
type Settings struct {
	WSURL    string
	ChainID  int64
	ChatList common.Address
	User     common.Address
}

// DefaultReconfigureDebounce bounds how often a burst of settings changes
// can tear down and rebuild upstream subscriptions.
const DefaultReconfigureDebounce = 500 * time.Millisecond

// ChatStreamer is the chat source contract a ChatRepository pumps from.
type ChatStreamer interface {
	ObserveChats(ctx context.Context) (<-chan []domain.Chat, <-chan error)
}

// MessageStreamer is the per-chat message source contract.
type MessageStreamer interface {
	GetAllMessages(ctx context.Context) ([]domain.ChatMessage, error)
	ObserveUpdates(ctx context.Context) (<-chan domain.ChatMessageUpdate, <-chan error)
}

// reconfigurer debounces and de-duplicates settings changes. A burst of
// Update calls inside the debounce window collapses into one apply; an
// update matching the already applied settings is dropped entirely.
type reconfigurer struct {
	mu       sync.Mutex
	debounce time.Duration
	applied  Settings
	pending  Settings
	timer    *time.Timer
	apply    func(Settings)
}

func newReconfigurer(initial Settings, debounce time.Duration, apply func(Settings)) *reconfigurer {
	if debounce <= 0 {
		debounce = DefaultReconfigureDebounce
	}
	return &reconfigurer{
		debounce: debounce,
		applied:  initial,
		pending:  initial,
		apply:    apply,
	}
}

func (r *reconfigurer) update(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == r.pending {
		return
	}
	r.pending = s
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.fire)
}

func (r *reconfigurer) fire() {
	r.mu.Lock()
	s := r.pending
	if s == r.applied {
		r.mu.Unlock()
		return
	}
	r.applied = s
	r.mu.Unlock()

	r.apply(s)
}

// stop cancels a pending apply without firing it.
func (r *reconfigurer) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
