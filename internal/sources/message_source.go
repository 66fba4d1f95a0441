package sources

import (
	"context"
	"log/slog"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/contracts"
	"github.com/banter-chat/banter/internal/core/domain"
)

// MessageSource reads and streams messages for one chat contract.
type MessageSource struct {
	client ChainClient
	chat   common.Address
	cache  MessageCache // nil disables warm starts
	log    *slog.Logger
}

// NewMessageSource builds a source for one chat contract. cache may be nil.
func NewMessageSource(client ChainClient, chat common.Address, cache MessageCache) *MessageSource {
	return &MessageSource{
		client: client,
		chat:   chat,
		cache:  cache,
		log:    slog.With("component", "message_source", "chat", chat.Hex()),
	}
}

// GetAllMessages fetches every message sent to the chat, newest first. With
// a warm cache only blocks past the stored cursor are scanned; cache
// failures degrade to a full fetch, never to an error.
func (s *MessageSource) GetAllMessages(ctx context.Context) ([]domain.ChatMessage, error) {
	var (
		cached    []domain.ChatMessage
		fromBlock *big.Int
		cursor    uint64
	)

	// Cached messages are only usable together with their cursor: without
	// the block bound, the refetch would cover the cached range again and
	// every cached message would come back twice. A cache with messages but
	// no cursor is treated as cold.
	if s.cache != nil {
		block, found, err := s.cache.Cursor(ctx, s.chat.Hex())
		if err != nil {
			s.log.Warn("cursor read failed, doing a full fetch", "error", err)
		} else if found {
			msgs, err := s.cache.Messages(ctx, s.chat.Hex())
			if err != nil {
				s.log.Warn("message cache read failed, doing a full fetch", "error", err)
			} else {
				cached = msgs
				cursor = block
				fromBlock = new(big.Int).SetUint64(block + 1)
			}
		}
	}

	events, err := s.client.Find(ctx, s.chat, contracts.MessageSentEvent(), fromBlock, nil)
	if err != nil {
		return nil, err
	}

	messages := cached
	maxBlock := cursor
	for _, ev := range events {
		msg, ok := contracts.MessageFromEvent(ev)
		if !ok {
			continue
		}
		messages = append(messages, msg)
		if ev.BlockNumber > maxBlock {
			maxBlock = ev.BlockNumber
		}
	}

	// Newest first.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})

	if s.cache != nil && len(events) > 0 {
		if err := s.cache.SaveMessages(ctx, s.chat.Hex(), messages); err != nil {
			s.log.Warn("message cache write failed", "error", err)
		} else if err := s.cache.SetCursor(ctx, s.chat.Hex(), maxBlock); err != nil {
			s.log.Warn("cursor write failed", "error", err)
		}
	}

	return messages, nil
}

// ObserveUpdates streams message updates for the chat. Currently every
// update is an Added variant; the set is open for future kinds.
func (s *MessageSource) ObserveUpdates(ctx context.Context) (<-chan domain.ChatMessageUpdate, <-chan error) {
	out := make(chan domain.ChatMessageUpdate)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		live, liveErrs, err := s.client.Subscribe(ctx, s.chat, contracts.MessageSentEvent())
		if err != nil {
			errs <- err
			return
		}

		for ev := range live {
			msg, ok := contracts.MessageFromEvent(ev)
			if !ok {
				continue
			}

			select {
			case out <- domain.MessageAdded(msg):
			case <-ctx.Done():
				return
			}
		}

		if err := <-liveErrs; err != nil {
			errs <- err
		}
	}()

	return out, errs
}
