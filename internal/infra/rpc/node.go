package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Node is the uniform async contract over the raw node RPC API. Every
// callback-style API of the underlying transport is bridged into this
// interface exactly once; layers above never deal in callbacks. All
// operations may fail with a transport error (network, malformed response,
// node-side revert) wrapped around domain.ErrTransport.
//
// A Node may be shared read-only across multiple chain clients.
type Node interface {
	// PendingNonceAt returns the next nonce for the account, including
	// pending transactions.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// SuggestGasPrice returns the node's current gas price suggestion.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates the gas needed to execute the call.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// CallContract executes a read-only call at the latest block.
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	// SendTransaction submits a signed transaction.
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// FilterLogs queries historical logs matching the filter.
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// SubscribeLogs opens a live log subscription matching the filter.
	// Unsubscribing (or a terminal error) releases the node-side
	// subscription so no server state leaks.
	SubscribeLogs(ctx context.Context, q ethereum.FilterQuery) (*LogSubscription, error)

	// Close tears down the underlying connection.
	Close()
}

// LogSubscription is a single-producer sequence of raw log entries. The
// consumer reads Logs until it closes or an error arrives on Err; calling
// Unsubscribe from any exit path cancels the node-side subscription.
type LogSubscription struct {
	logs <-chan types.Log
	sub  ethereum.Subscription
}

// NewLogSubscription wraps a raw log channel and its upstream subscription
// handle. Exported so stub transports can be built in tests.
func NewLogSubscription(logs <-chan types.Log, sub ethereum.Subscription) *LogSubscription {
	return &LogSubscription{logs: logs, sub: sub}
}

// Logs returns the raw log entries in node-delivered order.
func (s *LogSubscription) Logs() <-chan types.Log { return s.logs }

// Err delivers the terminal subscription error, if any.
func (s *LogSubscription) Err() <-chan error { return s.sub.Err() }

// Unsubscribe cancels the node-side subscription. Safe to call more than once.
func (s *LogSubscription) Unsubscribe() { s.sub.Unsubscribe() }
