package sources

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/contracts"
	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/infra/eth"
)

// ChatService covers the write operations and direct contract reads that
// don't go through the streaming pipeline.
type ChatService struct {
	client   ChainClient
	chatList common.Address
	signer   eth.Signer // nil in read-only mode
}

// NewChatService builds the service. signer may be nil, which disables the
// write operations.
func NewChatService(client ChainClient, chatList common.Address, signer eth.Signer) *ChatService {
	return &ChatService{client: client, chatList: chatList, signer: signer}
}

// CreateChat submits a createChat(recipient) transaction. The new chat
// surfaces through the ChatCreated subscription once mined; there is no
// optimistic local append.
func (s *ChatService) CreateChat(ctx context.Context, recipient common.Address) error {
	if s.signer == nil {
		return fmt.Errorf("%w: no private key configured", domain.ErrConfiguration)
	}
	return s.client.Send(ctx, contracts.CreateChat(s.chatList, recipient), nil, s.signer)
}

// SendMessage submits a sendMessage transaction to one chat contract.
func (s *ChatService) SendMessage(ctx context.Context, chat common.Address, message string) error {
	if s.signer == nil {
		return fmt.Errorf("%w: no private key configured", domain.ErrConfiguration)
	}
	return s.client.Send(ctx, contracts.SendMessage(chat, message), nil, s.signer)
}

// UserChats executes the getUserChats() read call.
func (s *ChatService) UserChats(ctx context.Context) ([]domain.ChatInfo, error) {
	result, err := s.client.Call(ctx, contracts.GetUserChats(s.chatList))
	if err != nil {
		return nil, err
	}
	return contracts.DecodeChatInfoList(result)
}

// Chat executes the getChat(chatContract) read call.
func (s *ChatService) Chat(ctx context.Context, chat common.Address) (domain.ChatInfo, error) {
	result, err := s.client.Call(ctx, contracts.GetChat(s.chatList, chat))
	if err != nil {
		return domain.ChatInfo{}, err
	}
	return contracts.DecodeChatInfo(result)
}
