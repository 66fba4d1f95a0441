package sources

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/contracts"
	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/infra/eth"
)

// ChatSource streams "all chats known so far" snapshots for one user from
// the chat list contract.
type ChatSource struct {
	client   ChainClient
	contract common.Address
	user     common.Address
	log      *slog.Logger
}

// NewChatSource builds a source over the chat list contract, filtered to
// chats involving user.
func NewChatSource(client ChainClient, contract, user common.Address) *ChatSource {
	return &ChatSource{
		client:   client,
		contract: contract,
		user:     user,
		log:      slog.With("component", "chat_source"),
	}
}

// ObserveChats emits the full historical set once, then re-emits the whole
// updated set after every matching live event. The set is append-only for
// the lifetime of one subscription. On any upstream failure the error is
// delivered and both channels close; reconnecting is the caller's business.
func (s *ChatSource) ObserveChats(ctx context.Context) (<-chan []domain.Chat, <-chan error) {
	out := make(chan []domain.Chat)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		schema := contracts.ChatCreatedEvent()

		history, err := s.client.Find(ctx, s.contract, schema, nil, nil)
		if err != nil {
			errs <- err
			return
		}

		var chats []domain.Chat
		for _, ev := range history {
			if chat, ok := s.matching(ev); ok {
				chats = append(chats, chat)
			}
		}

		if !s.emit(ctx, out, chats) {
			return
		}

		live, liveErrs, err := s.client.Subscribe(ctx, s.contract, schema)
		if err != nil {
			errs <- err
			return
		}

		for ev := range live {
			chat, ok := s.matching(ev)
			if !ok {
				continue
			}
			chats = append(chats, chat)
			if !s.emit(ctx, out, chats) {
				return
			}
		}

		if err := <-liveErrs; err != nil {
			errs <- err
		}
	}()

	return out, errs
}

// matching decodes and filters one event: only chats where the user is
// author or recipient pass.
func (s *ChatSource) matching(ev eth.LogEvent) (domain.Chat, bool) {
	chat, ok := contracts.ChatFromEvent(ev)
	if !ok {
		return domain.Chat{}, false
	}
	if !chat.Involves(s.user) {
		return domain.Chat{}, false
	}
	return chat, true
}

// emit sends a copy of the snapshot so later appends don't mutate what a
// consumer already received.
func (s *ChatSource) emit(ctx context.Context, out chan<- []domain.Chat, chats []domain.Chat) bool {
	snapshot := append([]domain.Chat(nil), chats...)
	select {
	case out <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}
