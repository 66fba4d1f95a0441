package repo

import (
	"time"

	"github.com/banter-chat/banter/internal/core/domain"
)

// ChatRepository fans one chat-list subscription out to any number of
// consumers. The upstream runs only while at least one consumer is
// observing; the latest snapshot is replayed to consumers that join late.
type ChatRepository struct {
	build  func(Settings) ChatStreamer
	fanout *fanout[[]domain.Chat]
	reconf *reconfigurer
}

// ChatRepositoryOption adjusts construction defaults.
type ChatRepositoryOption func(*chatRepoConfig)

type chatRepoConfig struct {
	debounce time.Duration
}

// WithReconfigureDebounce overrides the settings-change debounce window.
func WithReconfigureDebounce(d time.Duration) ChatRepositoryOption {
	return func(c *chatRepoConfig) { c.debounce = d }
}

// NewChatRepository builds a repository that constructs its upstream source
// from settings via build, and rebuilds it whenever settings change.
func NewChatRepository(build func(Settings) ChatStreamer, settings Settings, opts ...ChatRepositoryOption) *ChatRepository {
	cfg := chatRepoConfig{debounce: DefaultReconfigureDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &ChatRepository{build: build}
	r.fanout = newFanout("chats", streamerObserve(build(settings)))
	r.reconf = newReconfigurer(settings, cfg.debounce, func(s Settings) {
		r.fanout.reset(streamerObserve(r.build(s)))
	})
	return r
}

// ObserveChats registers a consumer. The returned stop function removes it;
// when the last consumer leaves the upstream subscription is cancelled.
func (r *ChatRepository) ObserveChats() (<-chan []domain.Chat, <-chan error, func()) {
	return r.fanout.subscribe()
}

// Reconfigure schedules a re-source with the new settings. Bursts within
// the debounce window collapse; settings identical to the applied ones are
// ignored.
func (r *ChatRepository) Reconfigure(s Settings) {
	r.reconf.update(s)
}

// Subscribers reports the number of registered consumers.
func (r *ChatRepository) Subscribers() int {
	return r.fanout.subscriberCount()
}

// Close finishes every consumer and cancels the upstream.
func (r *ChatRepository) Close() {
	r.reconf.stop()
	r.fanout.shutdown()
}

func streamerObserve(s ChatStreamer) observeFunc[[]domain.Chat] {
	return s.ObserveChats
}
