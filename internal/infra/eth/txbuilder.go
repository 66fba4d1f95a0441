package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/banter-chat/banter/internal/core/domain"
)

// TransactionBuilder assembles an unsigned transaction from an invocation
// descriptor and the supplied pricing parameters. Pure function of its
// inputs, no I/O.
type TransactionBuilder interface {
	Build(
		inv Invocation,
		sender common.Address,
		value *big.Int,
		nonce uint64,
		fees Fees,
		gasLimit uint64,
	) (*types.Transaction, error)
}

// DynamicFeeBuilder always emits fee-market (EIP-1559) transactions with an
// empty access list. Legacy gas pricing is never populated.
type DynamicFeeBuilder struct {
	chainID *big.Int
}

// NewDynamicFeeBuilder builds transactions for the given chain.
func NewDynamicFeeBuilder(chainID *big.Int) *DynamicFeeBuilder {
	return &DynamicFeeBuilder{chainID: chainID}
}

func (b *DynamicFeeBuilder) Build(
	inv Invocation,
	sender common.Address,
	value *big.Int,
	nonce uint64,
	fees Fees,
	gasLimit uint64,
) (*types.Transaction, error) {
	if fees.MaxFeePerGas == nil || fees.MaxPriorityFeePerGas == nil {
		return nil, fmt.Errorf("%w: fee-market prices are required", domain.ErrTransactionBuild)
	}

	data, err := inv.EncodeCallData()
	if err != nil {
		return nil, err
	}

	to := inv.Contract()
	if value == nil {
		value = new(big.Int)
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:    b.chainID,
		Nonce:      nonce,
		GasTipCap:  fees.MaxPriorityFeePerGas,
		GasFeeCap:  fees.MaxFeePerGas,
		Gas:        gasLimit,
		To:         &to,
		Value:      value,
		Data:       data,
		AccessList: types.AccessList{},
	}), nil
}
