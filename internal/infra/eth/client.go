package eth

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/banter-chat/banter/internal/infra/rpc"
	"github.com/banter-chat/banter/internal/metrics"
)

// Client orchestrates the chain interaction surface: read-only calls,
// signed submission, historical event queries and live event subscriptions.
// The underlying Node may be shared with other clients.
type Client struct {
	node      rpc.Node
	chainID   *big.Int
	builder   TransactionBuilder
	estimator FeeEstimator
	gasMargin float64
	log       *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBuilder substitutes the transaction builder.
func WithBuilder(b TransactionBuilder) Option {
	return func(c *Client) { c.builder = b }
}

// WithEstimator substitutes the fee estimator.
func WithEstimator(e FeeEstimator) Option {
	return func(c *Client) { c.estimator = e }
}

// WithGasMargin sets the safety margin applied to gas estimates.
func WithGasMargin(margin float64) Option {
	return func(c *Client) { c.gasMargin = margin }
}

// NewClient builds a chain client over the node.
func NewClient(node rpc.Node, chainID *big.Int, opts ...Option) *Client {
	c := &Client{
		node:      node,
		chainID:   chainID,
		builder:   NewDynamicFeeBuilder(chainID),
		estimator: NewGasPriceEstimator(node, 1.0, 1),
		gasMargin: 1.2,
		log:       slog.With("component", "eth"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call executes a read-only invocation and returns the decoded result
// mapping. Transport errors are surfaced verbatim, no retries.
func (c *Client) Call(ctx context.Context, inv Invocation) (map[string]any, error) {
	data, err := inv.EncodeCallData()
	if err != nil {
		return nil, err
	}

	to := inv.Contract()
	out, err := c.node.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, err
	}

	return inv.DecodeOutput(out)
}

// Send builds, signs and submits a state-changing invocation. The nonce,
// fee and gas-limit lookups run concurrently and must all succeed before
// anything is built; a failing lookup aborts the whole operation with that
// lookup's error and zero submissions. Submission happens exactly once; a
// submitted-but-unconfirmed transaction is never retried here.
func (c *Client) Send(ctx context.Context, inv Invocation, value *big.Int, signer Signer) error {
	// Encoding problems surface before any network call.
	data, err := inv.EncodeCallData()
	if err != nil {
		return err
	}

	sender := signer.Address()
	to := inv.Contract()

	var (
		nonce       uint64
		fees        Fees
		gasEstimate uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nonce, err = c.node.PendingNonceAt(gctx, sender)
		return err
	})
	g.Go(func() error {
		var err error
		fees, err = c.estimator.Estimate(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		gasEstimate, err = c.node.EstimateGas(gctx, ethereum.CallMsg{
			From:  sender,
			To:    &to,
			Value: value,
			Data:  data,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	gasLimit := uint64(float64(gasEstimate) * c.gasMargin)

	tx, err := c.builder.Build(inv, sender, value, nonce, fees, gasLimit)
	if err != nil {
		return err
	}

	signed, err := signer.SignTx(tx, c.chainID)
	if err != nil {
		return err
	}

	c.log.Debug("submitting transaction",
		"method", inv.Method(), "nonce", nonce, "gas_limit", gasLimit)

	return c.node.SendTransaction(ctx, signed)
}

// Find queries historical logs for the event over the given block range
// (nil from = genesis, nil to = latest) and decodes them against the
// schema. Entries that fail to decode are not this event and are silently
// dropped; node-delivered order is preserved.
func (c *Client) Find(
	ctx context.Context,
	contract common.Address,
	event EventSchema,
	fromBlock, toBlock *big.Int,
) ([]LogEvent, error) {
	raw, err := c.node.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{event.ID}},
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		return nil, err
	}

	events := make([]LogEvent, 0, len(raw))
	for _, l := range raw {
		ev, err := event.DecodeLog(l)
		if err != nil {
			metrics.EventsDroppedTotal.WithLabelValues(event.Name).Inc()
			continue
		}
		metrics.EventsDecodedTotal.WithLabelValues(event.Name).Inc()
		events = append(events, ev)
	}
	return events, nil
}

// Subscribe opens a live decoded event stream. Entries that fail to decode
// are dropped without surfacing; an upstream transport error terminates the
// stream with that error on the error channel followed by channel close.
// Cancelling ctx unsubscribes on the node.
func (c *Client) Subscribe(
	ctx context.Context,
	contract common.Address,
	event EventSchema,
) (<-chan LogEvent, <-chan error, error) {
	sub, err := c.node.SubscribeLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, nil, err
	}

	out := make(chan LogEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return

			case err := <-sub.Err():
				if err != nil {
					errs <- err
				}
				return

			case l, ok := <-sub.Logs():
				if !ok {
					return
				}

				ev, err := event.DecodeLog(l)
				if err != nil {
					metrics.EventsDroppedTotal.WithLabelValues(event.Name).Inc()
					continue
				}
				metrics.EventsDecodedTotal.WithLabelValues(event.Name).Inc()

				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errs, nil
}

// ChainID returns the chain identifier this client signs for.
func (c *Client) ChainID() *big.Int { return c.chainID }
