package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/banter-chat/banter/internal/core/domain"
)

// Key helpers
func messagesKey(chat string) string {
	return fmt.Sprintf("banter:messages:%s", chat)
}

func cursorKey(chat string) string {
	return fmt.Sprintf("banter:cursor:%s", chat)
}

// Messages returns the cached decoded messages for a chat, or nil when the
// cache is cold.
func (c *Client) Messages(ctx context.Context, chat string) ([]domain.ChatMessage, error) {
	data, err := c.rdb.Get(ctx, messagesKey(chat)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached messages: %w", err)
	}

	var msgs []domain.ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		// A corrupt entry is treated as a cold cache, not a failure.
		return nil, nil
	}
	return msgs, nil
}

// SaveMessages replaces the cached message set for a chat.
func (c *Client) SaveMessages(ctx context.Context, chat string, msgs []domain.ChatMessage) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	if err := c.rdb.Set(ctx, messagesKey(chat), data, 0).Err(); err != nil {
		return fmt.Errorf("save cached messages: %w", err)
	}
	return nil
}

// Cursor returns the last fully scanned block for a chat. found is false on
// a cold cache.
func (c *Client) Cursor(ctx context.Context, chat string) (block uint64, found bool, err error) {
	raw, err := c.rdb.Get(ctx, cursorKey(chat)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cursor: %w", err)
	}

	block, err = strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return block, true, nil
}

// SetCursor records the last fully scanned block for a chat.
func (c *Client) SetCursor(ctx context.Context, chat string, block uint64) error {
	if err := c.rdb.Set(ctx, cursorKey(chat), strconv.FormatUint(block, 10), 0).Err(); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
