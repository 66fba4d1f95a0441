package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chat represents one on-chain conversation. Its ID is the deployed chat
// contract address in EIP-55 checksummed form. Chats are created once and
// never edited or deleted.
type Chat struct {
	ID          string
	AuthorID    string
	RecipientID string
	Title       string
	CreatedAt   time.Time
}

// ContractAddress returns the chat contract address the ID encodes.
func (c Chat) ContractAddress() common.Address {
	return common.HexToAddress(c.ID)
}

// Involves reports whether the given address is the chat's author or recipient.
func (c Chat) Involves(addr common.Address) bool {
	return common.HexToAddress(c.AuthorID) == addr || common.HexToAddress(c.RecipientID) == addr
}

// ChatMessage is a single message in a chat. Messages are append-only and
// ordered newest-first by convention.
type ChatMessage struct {
	ID        string
	SenderID  string
	Content   string
	Timestamp time.Time
}

// ChatInfo mirrors the ChatInfo tuple returned by the chat list contract's
// read methods.
type ChatInfo struct {
	ChatContract common.Address
	Author       common.Address
	Recipient    common.Address
	CreatedAt    time.Time
	Exists       bool
}
