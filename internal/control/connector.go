package control

import (
	"context"
	"math/big"
	"sync"

	"github.com/banter-chat/banter/internal/infra/eth"
	"github.com/banter-chat/banter/internal/infra/rpc"
	"github.com/banter-chat/banter/internal/repo"
)

// connector owns the dialed node and the chain client over it. When the
// settings name a different node URL or chain id, ensure dials a fresh
// connection, rebuilds the client and closes the superseded connection;
// otherwise the current client is reused. A failed dial keeps the current
// connection in place.
type connector struct {
	dial     func(ctx context.Context, wsURL string) (rpc.Node, error)
	newChain func(node rpc.Node, chainID *big.Int) *eth.Client

	mu      sync.Mutex
	node    rpc.Node
	chain   *eth.Client
	wsURL   string
	chainID int64
}

func newConnector(
	dial func(ctx context.Context, wsURL string) (rpc.Node, error),
	newChain func(node rpc.Node, chainID *big.Int) *eth.Client,
) *connector {
	return &connector{dial: dial, newChain: newChain}
}

// ensure returns a chain client talking to the node the settings name.
func (c *connector) ensure(ctx context.Context, s repo.Settings) (*eth.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.node != nil && s.WSURL == c.wsURL && s.ChainID == c.chainID {
		return c.chain, nil
	}

	node, err := c.dial(ctx, s.WSURL)
	if err != nil {
		return nil, err
	}

	if c.node != nil {
		c.node.Close()
	}
	c.node = node
	c.chain = c.newChain(node, big.NewInt(s.ChainID))
	c.wsURL = s.WSURL
	c.chainID = s.ChainID
	return c.chain, nil
}

// current returns the chain client for the connection established last.
func (c *connector) current() *eth.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chain
}

// currentNode returns the node handle for the connection established last.
func (c *connector) currentNode() rpc.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node
}

func (c *connector) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.node != nil {
		c.node.Close()
		c.node = nil
		c.chain = nil
	}
}
