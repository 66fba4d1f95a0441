package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/metrics"
)

// Client implements Node on top of a go-ethereum websocket connection.
type Client struct {
	ec      *ethclient.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

var _ Node = (*Client)(nil)

// Dial connects to the node at wsURL. rateLimit caps outgoing calls per
// second; 0 disables throttling. The URL must already be validated by the
// configuration layer.
func Dial(ctx context.Context, wsURL string, rateLimit float64) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", domain.ErrTransport, wsURL, err)
	}

	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}

	return &Client{
		ec:      ec,
		limiter: limiter,
		log:     slog.With("component", "rpc"),
	}, nil
}

// begin applies the rate limit and returns the metrics finisher for one call.
func (c *Client) begin(ctx context.Context, method string) (func(error), error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrTransport, method, err)
		}
	}

	start := time.Now()
	metrics.RPCCallsTotal.WithLabelValues(method).Inc()

	return func(err error) {
		metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(method).Inc()
			c.log.Debug("rpc call failed", "method", method, "error", err)
		}
	}, nil
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	done, err := c.begin(ctx, "eth_getTransactionCount")
	if err != nil {
		return 0, err
	}

	nonce, err := c.ec.PendingNonceAt(ctx, account)
	done(err)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_getTransactionCount: %w", domain.ErrTransport, err)
	}
	return nonce, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	done, err := c.begin(ctx, "eth_gasPrice")
	if err != nil {
		return nil, err
	}

	price, err := c.ec.SuggestGasPrice(ctx)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_gasPrice: %w", domain.ErrTransport, err)
	}
	return price, nil
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	done, err := c.begin(ctx, "eth_estimateGas")
	if err != nil {
		return 0, err
	}

	gas, err := c.ec.EstimateGas(ctx, msg)
	done(err)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_estimateGas: %w", domain.ErrTransport, err)
	}
	return gas, nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	done, err := c.begin(ctx, "eth_call")
	if err != nil {
		return nil, err
	}

	out, err := c.ec.CallContract(ctx, msg, nil)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_call: %w", domain.ErrTransport, err)
	}
	return out, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	done, err := c.begin(ctx, "eth_sendRawTransaction")
	if err != nil {
		return err
	}

	err = c.ec.SendTransaction(ctx, tx)
	done(err)
	if err != nil {
		return fmt.Errorf("%w: eth_sendRawTransaction: %w", domain.ErrTransport, err)
	}

	metrics.TransactionsSubmitted.Inc()
	c.log.Info("transaction submitted", "hash", tx.Hash().Hex(), "nonce", tx.Nonce())
	return nil
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	done, err := c.begin(ctx, "eth_getLogs")
	if err != nil {
		return nil, err
	}

	logs, err := c.ec.FilterLogs(ctx, q)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getLogs: %w", domain.ErrTransport, err)
	}
	return logs, nil
}

func (c *Client) SubscribeLogs(ctx context.Context, q ethereum.FilterQuery) (*LogSubscription, error) {
	done, err := c.begin(ctx, "eth_subscribe")
	if err != nil {
		return nil, err
	}

	ch := make(chan types.Log, 64)
	sub, err := c.ec.SubscribeFilterLogs(ctx, q, ch)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_subscribe: %w", domain.ErrTransport, err)
	}

	return NewLogSubscription(ch, sub), nil
}

func (c *Client) Close() {
	c.ec.Close()
}
