package eth

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/banter-chat/banter/internal/infra/rpc"
)

// Minimal contract surface used across the package tests.
const testABIJSON = `[
	{"type":"function","name":"ping","inputs":[{"name":"x","type":"uint256"}],"outputs":[{"name":"y","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"poke","inputs":[{"name":"m","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"Ping","inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"note","type":"string","indexed":false},
		{"name":"at","type":"uint256","indexed":false}
	],"anonymous":false}
]`

func testABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testABIJSON))
	if err != nil {
		t.Fatalf("failed to parse test ABI: %v", err)
	}
	return parsed
}

func pingSchema(t *testing.T) EventSchema {
	t.Helper()
	return NewEventSchema(testABI(t).Events["Ping"])
}

// stubNode implements rpc.Node for tests.
type stubNode struct {
	mu sync.Mutex

	nonce    uint64
	nonceErr error

	gasPrice    *big.Int
	gasPriceErr error

	gasEstimate uint64
	estimateErr error

	callResult []byte
	callErr    error

	sendErr error
	sent    []*types.Transaction

	logs      []types.Log
	filterErr error

	subLogs      chan types.Log
	subErrs      chan error
	subErr       error
	unsubscribed int
}

func newStubNode() *stubNode {
	return &stubNode{
		gasPrice:    big.NewInt(1),
		subLogs:     make(chan types.Log, 16),
		subErrs:     make(chan error, 1),
		gasEstimate: 21000,
	}
}

func (s *stubNode) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return s.nonce, s.nonceErr
}

func (s *stubNode) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if s.gasPriceErr != nil {
		return nil, s.gasPriceErr
	}
	return new(big.Int).Set(s.gasPrice), nil
}

func (s *stubNode) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return s.gasEstimate, s.estimateErr
}

func (s *stubNode) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return s.callResult, s.callErr
}

func (s *stubNode) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, tx)
	return nil
}

func (s *stubNode) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *stubNode) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return s.logs, s.filterErr
}

func (s *stubNode) SubscribeLogs(ctx context.Context, q ethereum.FilterQuery) (*rpc.LogSubscription, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	return rpc.NewLogSubscription(s.subLogs, &stubSub{node: s, errs: s.subErrs}), nil
}

func (s *stubNode) Close() {}

type stubSub struct {
	node *stubNode
	errs chan error
}

func (f *stubSub) Unsubscribe() {
	f.node.mu.Lock()
	f.node.unsubscribed++
	f.node.mu.Unlock()
}

func (f *stubSub) Err() <-chan error { return f.errs }
