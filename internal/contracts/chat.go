package contracts

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/infra/eth"
)

const chatABIJSON = `[
	{"type":"event","name":"MessageSent","anonymous":false,"inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"message","type":"string","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false}
	]},
	{"type":"function","name":"sendMessage","stateMutability":"nonpayable",
		"inputs":[{"name":"message","type":"string"}],
		"outputs":[]}
]`

var chatABI = mustParseABI(chatABIJSON)

// MessageSentEvent returns the schema of the chat contract's message event.
func MessageSentEvent() eth.EventSchema {
	return eth.NewEventSchema(chatABI.Events["MessageSent"])
}

// SendMessage builds the sendMessage(message) write invocation against one
// chat contract.
func SendMessage(chat common.Address, message string) eth.Invocation {
	return eth.NewInvocation(chat, chatABI, "sendMessage", true, message)
}

// MessageFromEvent maps a decoded MessageSent event into a ChatMessage.
// Returns false when the fields do not carry the expected types. The message
// id is freshly generated; the chain does not assign one.
func MessageFromEvent(ev eth.LogEvent) (domain.ChatMessage, bool) {
	sender, okS := ev.Fields["sender"].(common.Address)
	content, okM := ev.Fields["message"].(string)
	timestamp, okT := ev.Fields["timestamp"].(*big.Int)
	if !okS || !okM || !okT {
		return domain.ChatMessage{}, false
	}

	return domain.ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  sender.Hex(),
		Content:   content,
		Timestamp: time.Unix(timestamp.Int64(), 0).UTC(),
	}, true
}
