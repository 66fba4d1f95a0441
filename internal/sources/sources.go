// Package sources maps generic decoded log events into typed domain updates.
// Each source owns the filtering rules for one logical resource; reconnect
// policy lives a layer up, in the repository.
package sources

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/infra/eth"
)

// ChainClient is the chain surface the sources consume.
type ChainClient interface {
	Call(ctx context.Context, inv eth.Invocation) (map[string]any, error)
	Send(ctx context.Context, inv eth.Invocation, value *big.Int, signer eth.Signer) error
	Find(
		ctx context.Context,
		contract common.Address,
		event eth.EventSchema,
		fromBlock, toBlock *big.Int,
	) ([]eth.LogEvent, error)
	Subscribe(
		ctx context.Context,
		contract common.Address,
		event eth.EventSchema,
	) (<-chan eth.LogEvent, <-chan error, error)
}

// MessageCache optionally warm-starts historical message fetches. A nil
// cache means every fetch scans the full range.
type MessageCache interface {
	Messages(ctx context.Context, chat string) ([]domain.ChatMessage, error)
	SaveMessages(ctx context.Context, chat string, msgs []domain.ChatMessage) error
	Cursor(ctx context.Context, chat string) (block uint64, found bool, err error)
	SetCursor(ctx context.Context, chat string, block uint64) error
}
