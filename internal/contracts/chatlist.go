// Package contracts pins the wire-level surface of the deployed chat
// contracts: event schemas, method invocations and the mapping from decoded
// log fields into domain records. The ABI definitions are bit-exact against
// the remote contracts and must not drift.
package contracts

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/infra/eth"
)

const chatListABIJSON = `[
	{"type":"event","name":"ChatCreated","anonymous":false,"inputs":[
		{"name":"author","type":"address","indexed":true},
		{"name":"recipient","type":"address","indexed":true},
		{"name":"chatContract","type":"address","indexed":false},
		{"name":"createdAt","type":"uint256","indexed":false}
	]},
	{"type":"function","name":"createChat","stateMutability":"nonpayable",
		"inputs":[{"name":"recipient","type":"address"}],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getUserChats","stateMutability":"view",
		"inputs":[],
		"outputs":[{"name":"","type":"tuple[]","components":[
			{"name":"chatContract","type":"address"},
			{"name":"author","type":"address"},
			{"name":"recipient","type":"address"},
			{"name":"createdAt","type":"uint256"},
			{"name":"exists","type":"bool"}
		]}]},
	{"type":"function","name":"getChat","stateMutability":"view",
		"inputs":[{"name":"chatContract","type":"address"}],
		"outputs":[{"name":"","type":"tuple","components":[
			{"name":"chatContract","type":"address"},
			{"name":"author","type":"address"},
			{"name":"recipient","type":"address"},
			{"name":"createdAt","type":"uint256"},
			{"name":"exists","type":"bool"}
		]}]}
]`

var chatListABI = mustParseABI(chatListABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid ABI definition: %v", err))
	}
	return parsed
}

// ChatCreatedEvent returns the schema of the chat list's creation event.
func ChatCreatedEvent() eth.EventSchema {
	return eth.NewEventSchema(chatListABI.Events["ChatCreated"])
}

// CreateChat builds the createChat(recipient) write invocation.
func CreateChat(chatList, recipient common.Address) eth.Invocation {
	return eth.NewInvocation(chatList, chatListABI, "createChat", true, recipient)
}

// GetUserChats builds the getUserChats() read invocation.
func GetUserChats(chatList common.Address) eth.Invocation {
	return eth.NewInvocation(chatList, chatListABI, "getUserChats", false)
}

// GetChat builds the getChat(chatContract) read invocation.
func GetChat(chatList, chatContract common.Address) eth.Invocation {
	return eth.NewInvocation(chatList, chatListABI, "getChat", false, chatContract)
}

// chatInfoTuple mirrors the contract's ChatInfo struct for ABI conversion.
type chatInfoTuple struct {
	ChatContract common.Address
	Author       common.Address
	Recipient    common.Address
	CreatedAt    *big.Int
	Exists       bool
}

func (t chatInfoTuple) toDomain() domain.ChatInfo {
	return domain.ChatInfo{
		ChatContract: t.ChatContract,
		Author:       t.Author,
		Recipient:    t.Recipient,
		CreatedAt:    time.Unix(t.CreatedAt.Int64(), 0).UTC(),
		Exists:       t.Exists,
	}
}

// DecodeChatInfoList converts a getUserChats() call result into ChatInfo
// records.
func DecodeChatInfoList(result map[string]any) ([]domain.ChatInfo, error) {
	raw, ok := result["0"]
	if !ok {
		return nil, fmt.Errorf("%w: getUserChats result missing output", domain.ErrDecode)
	}

	tuples, ok := convertTuples(raw)
	if !ok {
		return nil, fmt.Errorf("%w: getUserChats result has unexpected shape %T", domain.ErrDecode, raw)
	}

	infos := make([]domain.ChatInfo, 0, len(tuples))
	for _, t := range tuples {
		infos = append(infos, t.toDomain())
	}
	return infos, nil
}

// DecodeChatInfo converts a getChat() call result into one ChatInfo record.
func DecodeChatInfo(result map[string]any) (domain.ChatInfo, error) {
	raw, ok := result["0"]
	if !ok {
		return domain.ChatInfo{}, fmt.Errorf("%w: getChat result missing output", domain.ErrDecode)
	}

	tuple, ok := convertTuple(raw)
	if !ok {
		return domain.ChatInfo{}, fmt.Errorf("%w: getChat result has unexpected shape %T", domain.ErrDecode, raw)
	}
	return tuple.toDomain(), nil
}

// abi.ConvertType panics on shape mismatches, so both converters trap that
// into an ok=false result.
func convertTuples(raw any) (out []chatInfoTuple, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = nil, false
		}
	}()
	out = *abi.ConvertType(raw, new([]chatInfoTuple)).(*[]chatInfoTuple)
	return out, true
}

func convertTuple(raw any) (out chatInfoTuple, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = chatInfoTuple{}, false
		}
	}()
	out = *abi.ConvertType(raw, new(chatInfoTuple)).(*chatInfoTuple)
	return out, true
}

// ChatFromEvent maps a decoded ChatCreated event into a Chat record.
// Returns false when the fields do not carry the expected types.
func ChatFromEvent(ev eth.LogEvent) (domain.Chat, bool) {
	author, okA := ev.Fields["author"].(common.Address)
	recipient, okR := ev.Fields["recipient"].(common.Address)
	chatContract, okC := ev.Fields["chatContract"].(common.Address)
	createdAt, okT := ev.Fields["createdAt"].(*big.Int)
	if !okA || !okR || !okC || !okT {
		return domain.Chat{}, false
	}

	return domain.Chat{
		ID:          chatContract.Hex(),
		AuthorID:    author.Hex(),
		RecipientID: recipient.Hex(),
		CreatedAt:   time.Unix(createdAt.Int64(), 0).UTC(),
	}, true
}
