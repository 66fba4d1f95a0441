package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
)

// Invocation is a pending contract call descriptor: target address, method
// and arguments, plus whether it mutates state. Immutable once constructed;
// encoding happens lazily when the call is executed or built into a
// transaction.
type Invocation struct {
	contract common.Address
	abi      abi.ABI
	method   string
	args     []any
	mutates  bool
}

// NewInvocation builds a call descriptor against the given contract ABI.
func NewInvocation(
	contract common.Address,
	contractABI abi.ABI,
	method string,
	mutates bool,
	args ...any,
) Invocation {
	return Invocation{
		contract: contract,
		abi:      contractABI,
		method:   method,
		args:     args,
		mutates:  mutates,
	}
}

// Contract returns the target contract address.
func (i Invocation) Contract() common.Address { return i.contract }

// Method returns the method name.
func (i Invocation) Method() string { return i.method }

// Mutates reports whether executing the invocation changes chain state.
func (i Invocation) Mutates() bool { return i.mutates }

// EncodeCallData packs the method selector and arguments into calldata.
func (i Invocation) EncodeCallData() ([]byte, error) {
	data, err := i.abi.Pack(i.method, i.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", domain.ErrTransactionBuild, i.method, err)
	}
	return data, nil
}

// DecodeOutput unpacks a read-only call result into a name→value mapping.
// Anonymous outputs are keyed by position ("0", "1", ...), matching the
// ABI unpacker's convention for unnamed return values.
func (i Invocation) DecodeOutput(data []byte) (map[string]any, error) {
	method, ok := i.abi.Methods[i.method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown method %s", domain.ErrDecode, i.method)
	}

	values, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s output: %w", domain.ErrDecode, i.method, err)
	}

	out := make(map[string]any, len(values))
	for idx, arg := range method.Outputs {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("%d", idx)
		}
		out[name] = values[idx]
	}
	return out, nil
}
