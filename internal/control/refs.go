package control

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/infra/eth"
)

// chainRef resolves to the connector's current chain client on every call.
type chainRef struct {
	conn *connector
}

func (r chainRef) Call(ctx context.Context, inv eth.Invocation) (map[string]any, error) {
	return r.conn.current().Call(ctx, inv)
}

func (r chainRef) Send(ctx context.Context, inv eth.Invocation, value *big.Int, signer eth.Signer) error {
	return r.conn.current().Send(ctx, inv, value, signer)
}

func (r chainRef) Find(
	ctx context.Context,
	contract common.Address,
	event eth.EventSchema,
	fromBlock, toBlock *big.Int,
) ([]eth.LogEvent, error) {
	return r.conn.current().Find(ctx, contract, event, fromBlock, toBlock)
}

func (r chainRef) Subscribe(
	ctx context.Context,
	contract common.Address,
	event eth.EventSchema,
) (<-chan eth.LogEvent, <-chan error, error) {
	return r.conn.current().Subscribe(ctx, contract, event)
}

// nodeRef resolves to the connector's current node for health probing.
type nodeRef struct {
	conn *connector
}

func (r nodeRef) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return r.conn.currentNode().SuggestGasPrice(ctx)
}

// failingChatStreamer stands in for a chat source whose connection could
// not be established; every observe terminates immediately with the dial
// error, so the repository resets to idle and the next subscribe retries.
type failingChatStreamer struct {
	err error
}

func (f failingChatStreamer) ObserveChats(ctx context.Context) (<-chan []domain.Chat, <-chan error) {
	out := make(chan []domain.Chat)
	errs := make(chan error, 1)
	errs <- f.err
	close(out)
	close(errs)
	return out, errs
}

// failingMessageStreamer is the message-source counterpart.
type failingMessageStreamer struct {
	err error
}

func (f failingMessageStreamer) GetAllMessages(ctx context.Context) ([]domain.ChatMessage, error) {
	return nil, f.err
}

func (f failingMessageStreamer) ObserveUpdates(ctx context.Context) (<-chan domain.ChatMessageUpdate, <-chan error) {
	out := make(chan domain.ChatMessageUpdate)
	errs := make(chan error, 1)
	errs <- f.err
	close(out)
	close(errs)
	return out, errs
}
