package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/banter-chat/banter/internal/core/domain"
)

// EventSchema describes one contract event: its name and ordered parameter
// list with indexed flags. Raw log entries are decoded against it.
type EventSchema struct {
	abi.Event
}

// NewEventSchema wraps an ABI event definition.
func NewEventSchema(ev abi.Event) EventSchema {
	return EventSchema{Event: ev}
}

// LogEvent is a decoded log entry: the emitting contract, the raw topics,
// the block it was emitted in and the decoded fields keyed by parameter name.
type LogEvent struct {
	Address     common.Address
	Topics      []common.Hash
	BlockNumber uint64
	Fields      map[string]any
}

// DecodeLog decodes a raw log entry against the schema. A mismatch (wrong
// topic0, topic arity, or undecodable data) returns domain.ErrDecode; callers
// at the stream boundary treat that as "not this event" and drop the entry.
func (s EventSchema) DecodeLog(l types.Log) (LogEvent, error) {
	if len(l.Topics) == 0 || l.Topics[0] != s.ID {
		return LogEvent{}, fmt.Errorf("%w: %s: topic0 mismatch", domain.ErrDecode, s.Name)
	}

	indexed := indexedArguments(s.Inputs)
	if len(l.Topics)-1 != len(indexed) {
		return LogEvent{}, fmt.Errorf(
			"%w: %s: expected %d indexed topics, got %d",
			domain.ErrDecode, s.Name, len(indexed), len(l.Topics)-1,
		)
	}

	fields := make(map[string]any, len(s.Inputs))

	for i, arg := range indexed {
		value, err := decodeTopic(arg.Type, l.Topics[i+1])
		if err != nil {
			return LogEvent{}, fmt.Errorf("%w: %s.%s: %w", domain.ErrDecode, s.Name, arg.Name, err)
		}
		fields[arg.Name] = value
	}

	if err := s.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
		return LogEvent{}, fmt.Errorf("%w: %s data: %w", domain.ErrDecode, s.Name, err)
	}

	return LogEvent{
		Address:     l.Address,
		Topics:      l.Topics,
		BlockNumber: l.BlockNumber,
		Fields:      fields,
	}, nil
}

// EncodeLog builds a raw log entry carrying the given field values. The
// inverse of DecodeLog for this schema; used to synthesize node responses.
func (s EventSchema) EncodeLog(address common.Address, fields map[string]any) (types.Log, error) {
	topics := []common.Hash{s.ID}
	var nonIndexed []any

	for _, arg := range s.Inputs {
		value, ok := fields[arg.Name]
		if !ok {
			return types.Log{}, fmt.Errorf("missing field %s for event %s", arg.Name, s.Name)
		}

		if arg.Indexed {
			topic, err := encodeTopic(arg.Type, value)
			if err != nil {
				return types.Log{}, fmt.Errorf("encode topic %s.%s: %w", s.Name, arg.Name, err)
			}
			topics = append(topics, topic)
		} else {
			nonIndexed = append(nonIndexed, value)
		}
	}

	data, err := nonIndexedArguments(s.Inputs).Pack(nonIndexed...)
	if err != nil {
		return types.Log{}, fmt.Errorf("encode event %s data: %w", s.Name, err)
	}

	return types.Log{Address: address, Topics: topics, Data: data}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	var out abi.Arguments
	for _, arg := range args {
		if arg.Indexed {
			out = append(out, arg)
		}
	}
	return out
}

func nonIndexedArguments(args abi.Arguments) abi.Arguments {
	var out abi.Arguments
	for _, arg := range args {
		if !arg.Indexed {
			out = append(out, arg)
		}
	}
	return out
}

func decodeTopic(argType abi.Type, topic common.Hash) (any, error) {
	switch argType.T {
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes()), nil
	case abi.UintTy, abi.IntTy:
		return new(big.Int).SetBytes(topic.Bytes()), nil
	case abi.BoolTy:
		return topic[len(topic)-1] != 0, nil
	case abi.FixedBytesTy, abi.BytesTy, abi.HashTy:
		return topic, nil
	default:
		// Dynamic indexed types arrive as their keccak hash; surface the
		// raw topic so filters can still compare.
		return topic, nil
	}
}

func encodeTopic(argType abi.Type, value any) (common.Hash, error) {
	switch argType.T {
	case abi.AddressTy:
		addr, ok := value.(common.Address)
		if !ok {
			return common.Hash{}, fmt.Errorf("expected common.Address, got %T", value)
		}
		return common.BytesToHash(addr.Bytes()), nil
	case abi.UintTy, abi.IntTy:
		n, ok := value.(*big.Int)
		if !ok {
			return common.Hash{}, fmt.Errorf("expected *big.Int, got %T", value)
		}
		return common.BigToHash(n), nil
	case abi.BoolTy:
		b, ok := value.(bool)
		if !ok {
			return common.Hash{}, fmt.Errorf("expected bool, got %T", value)
		}
		if b {
			return common.BigToHash(big.NewInt(1)), nil
		}
		return common.Hash{}, nil
	case abi.HashTy, abi.FixedBytesTy:
		h, ok := value.(common.Hash)
		if !ok {
			return common.Hash{}, fmt.Errorf("expected common.Hash, got %T", value)
		}
		return h, nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type %s", argType.String())
	}
}
