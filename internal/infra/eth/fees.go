package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"

	"github.com/banter-chat/banter/internal/infra/rpc"
)

// Fees prices a fee-market transaction. This client never emits
// legacy-priced transactions, so a flat gas price never appears here.
type Fees struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// FeeEstimator computes gas price bounds for a pending transaction from
// current network conditions.
type FeeEstimator interface {
	Estimate(ctx context.Context) (Fees, error)
}

// GasPriceEstimator derives fees from the node's suggested gas price:
// maxFeePerGas = price × multiplier, maxPriorityFeePerGas = a fixed tip
// clamped so it never exceeds the max fee. Deterministic for a given
// upstream price, so it is testable against a stub node.
type GasPriceEstimator struct {
	node       rpc.Node
	multiplier float64
	tip        *big.Int
}

// NewGasPriceEstimator builds an estimator. multiplier scales the suggested
// price (1.0 = use as-is); tipGwei is the fixed priority tip.
func NewGasPriceEstimator(node rpc.Node, multiplier float64, tipGwei int64) *GasPriceEstimator {
	return &GasPriceEstimator{
		node:       node,
		multiplier: multiplier,
		tip:        new(big.Int).Mul(big.NewInt(tipGwei), big.NewInt(params.GWei)),
	}
}

func (e *GasPriceEstimator) Estimate(ctx context.Context) (Fees, error) {
	price, err := e.node.SuggestGasPrice(ctx)
	if err != nil {
		return Fees{}, fmt.Errorf("estimate fees: %w", err)
	}

	maxFee := scaleQuantity(price, e.multiplier)

	tip := new(big.Int).Set(e.tip)
	if tip.Cmp(maxFee) > 0 {
		tip.Set(maxFee)
	}

	return Fees{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}, nil
}

// scaleQuantity multiplies an arbitrary-precision quantity by a small
// factor without truncating the integer part.
func scaleQuantity(q *big.Int, factor float64) *big.Int {
	if factor == 1.0 {
		return new(big.Int).Set(q)
	}
	scaled, _ := new(big.Float).Mul(new(big.Float).SetInt(q), big.NewFloat(factor)).Int(nil)
	return scaled
}
