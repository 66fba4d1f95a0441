package repo

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
)

// MessageRepository fans message-update subscriptions out per chat
// contract. Each chat has its own upstream with the same lifecycle as the
// chat repository: started by the first observer, cancelled by the last,
// latest update replayed to late joiners.
type MessageRepository struct {
	build  func(Settings, common.Address) MessageStreamer
	reconf *reconfigurer

	mu       sync.Mutex
	settings Settings
	chats    map[common.Address]*fanout[domain.ChatMessageUpdate]
}

// NewMessageRepository builds a repository constructing one source per chat
// contract from the current settings.
func NewMessageRepository(
	build func(Settings, common.Address) MessageStreamer,
	settings Settings,
	debounce time.Duration,
) *MessageRepository {
	r := &MessageRepository{
		build:    build,
		settings: settings,
		chats:    make(map[common.Address]*fanout[domain.ChatMessageUpdate]),
	}
	r.reconf = newReconfigurer(settings, debounce, r.applySettings)
	return r
}

// GetAllMessages is a passthrough to the chat's source; it does not touch
// subscription state.
func (r *MessageRepository) GetAllMessages(ctx context.Context, chat common.Address) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	settings := r.settings
	r.mu.Unlock()

	return r.build(settings, chat).GetAllMessages(ctx)
}

// ObserveUpdates registers a consumer on one chat's update stream.
func (r *MessageRepository) ObserveUpdates(chat common.Address) (<-chan domain.ChatMessageUpdate, <-chan error, func()) {
	return r.fanoutFor(chat).subscribe()
}

// Reconfigure schedules a re-source of every chat's upstream with the new
// settings, debounced and de-duplicated.
func (r *MessageRepository) Reconfigure(s Settings) {
	r.reconf.update(s)
}

// Subscribers reports consumers summed over every chat stream.
func (r *MessageRepository) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, f := range r.chats {
		total += f.subscriberCount()
	}
	return total
}

// Close finishes every consumer on every chat.
func (r *MessageRepository) Close() {
	r.reconf.stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.chats {
		f.shutdown()
	}
	r.chats = make(map[common.Address]*fanout[domain.ChatMessageUpdate])
}

func (r *MessageRepository) fanoutFor(chat common.Address) *fanout[domain.ChatMessageUpdate] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.chats[chat]; ok {
		return f
	}
	f := newFanout("messages", r.observe(r.settings, chat))
	r.chats[chat] = f
	return f
}

func (r *MessageRepository) applySettings(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = s
	for chat, f := range r.chats {
		f.reset(r.observe(s, chat))
	}
}

func (r *MessageRepository) observe(s Settings, chat common.Address) observeFunc[domain.ChatMessageUpdate] {
	return r.build(s, chat).ObserveUpdates
}
