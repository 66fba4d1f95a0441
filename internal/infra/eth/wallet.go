package eth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/banter-chat/banter/internal/core/domain"
)

// Signer signs transactions for a given chain identifier.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Wallet holds one private key. The key derives exactly one address and is
// never serialized or logged.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ Signer = (*Wallet)(nil)

// NewWallet parses hex-encoded key material. Invalid material fails here,
// not at signing time.
func NewWallet(hexKey string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid key material", domain.ErrSigning)
	}

	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the address derived from the key.
func (w *Wallet) Address() common.Address { return w.address }

// SignTx signs the transaction for the given chain. Deterministic for a
// given key, transaction and chain id.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	return signed, nil
}
