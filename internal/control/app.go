package control

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/banter-chat/banter/internal/core/config"
	"github.com/banter-chat/banter/internal/core/domain"
	"github.com/banter-chat/banter/internal/health"
	"github.com/banter-chat/banter/internal/infra/eth"
	redisclient "github.com/banter-chat/banter/internal/infra/redis"
	"github.com/banter-chat/banter/internal/infra/rpc"
	"github.com/banter-chat/banter/internal/repo"
	"github.com/banter-chat/banter/internal/sources"
)

// App is the main application struct that wires the chain client stack and
// manages its lifecycle.
type App struct {
	cfg    *config.AppConfig
	conn   *connector
	signer eth.Signer
	cache  *redisclient.Client

	service  *sources.ChatService
	chats    *repo.ChatRepository
	messages *repo.MessageRepository

	healthServer *health.Server
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized. Configuration is
// validated before anything dials out.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg: cfg,
		log: slog.Default(),
	}

	a.conn = newConnector(
		func(ctx context.Context, wsURL string) (rpc.Node, error) {
			return rpc.Dial(ctx, wsURL, cfg.RPC.RateLimit)
		},
		func(node rpc.Node, chainID *big.Int) *eth.Client {
			return eth.NewClient(node, chainID,
				eth.WithEstimator(eth.NewGasPriceEstimator(node, cfg.Gas.FeeMultiplier, cfg.Gas.PriorityTipGwei)),
				eth.WithGasMargin(cfg.Gas.LimitMargin),
			)
		},
	)

	chatList := cfg.Contract.ChatListAddress()
	settings := repo.Settings{
		WSURL:    cfg.Node.WSURL,
		ChainID:  cfg.Node.ChainIDInt().Int64(),
		ChatList: chatList,
		User:     cfg.CallerAddress(),
	}

	if _, err := a.conn.ensure(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to dial node: %w", err)
	}

	if cfg.Wallet.PrivateKey != "" {
		wallet, err := eth.NewWallet(cfg.Wallet.PrivateKey)
		if err != nil {
			a.conn.close()
			return nil, err
		}
		a.signer = wallet
	}

	if cfg.Redis.URL != "" {
		cache, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, message cache disabled", "error", err)
		} else {
			a.cache = cache
		}
	}

	// Consumers hold chainRef, not the client itself, so a reconfigured
	// connection takes effect everywhere without rebuilding them.
	a.service = sources.NewChatService(chainRef{a.conn}, chatList, a.signer)

	a.chats = repo.NewChatRepository(func(s repo.Settings) repo.ChatStreamer {
		if _, err := a.conn.ensure(context.Background(), s); err != nil {
			a.log.Warn("Re-dial failed, chat stream unavailable", "ws_url", s.WSURL, "error", err)
			return failingChatStreamer{err: err}
		}
		return sources.NewChatSource(chainRef{a.conn}, s.ChatList, s.User)
	}, settings)

	a.messages = repo.NewMessageRepository(func(s repo.Settings, chat common.Address) repo.MessageStreamer {
		if _, err := a.conn.ensure(context.Background(), s); err != nil {
			a.log.Warn("Re-dial failed, message stream unavailable", "ws_url", s.WSURL, "error", err)
			return failingMessageStreamer{err: err}
		}
		var cache sources.MessageCache
		if a.cache != nil {
			cache = a.cache
		}
		return sources.NewMessageSource(chainRef{a.conn}, chat, cache)
	}, settings, repo.DefaultReconfigureDebounce)

	monitor := health.NewMonitor(nodeRef{a.conn}, a.chats, a.messages)
	a.healthServer = health.NewServer(monitor, cfg.Server.Port)

	return a, nil
}

// Service exposes the write/read call surface.
func (a *App) Service() *sources.ChatService { return a.service }

// Chats exposes the chat fan-out repository.
func (a *App) Chats() *repo.ChatRepository { return a.chats }

// Messages exposes the per-chat message fan-out repository.
func (a *App) Messages() *repo.MessageRepository { return a.messages }

// ReadOnly reports whether the app was configured without a signing key.
func (a *App) ReadOnly() bool { return a.signer == nil }

// Reconfigure pushes new connection settings to both repositories. Bursts
// are debounced before any upstream is rebuilt; when the node URL or chain
// id changed, the rebuilt sources come up on a freshly dialed connection.
func (a *App) Reconfigure(s repo.Settings) {
	a.chats.Reconfigure(s)
	a.messages.Reconfigure(s)
}

// Start starts the health server.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()
	return nil
}

// Stop tears the application down.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping...")

	a.chats.Close()
	a.messages.Close()

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	a.conn.close()

	return a.healthServer.Stop(ctx)
}

// Watch follows the user's chats and logs every new chat and message until
// the context is cancelled. This is the daemon mode's main loop.
func (a *App) Watch(ctx context.Context) error {
	snapshots, errs, stop := a.chats.ObserveChats()
	defer stop()

	known := make(map[string]bool)
	stops := make(map[string]func())
	defer func() {
		for _, s := range stops {
			s()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-snapshots:
			if !ok {
				if err := <-errs; err != nil {
					return err
				}
				return nil
			}
			for _, chat := range newChats(known, snapshot) {
				a.log.Info("New chat",
					"chat", chat.ID,
					"author", chat.AuthorID,
					"recipient", chat.RecipientID,
					"created_at", chat.CreatedAt.Format(time.RFC3339))
				stops[chat.ID] = a.watchMessages(chat.ContractAddress())
			}
		}
	}
}

// watchMessages tails one chat's update stream in the background; the
// returned function detaches from it.
func (a *App) watchMessages(chat common.Address) func() {
	updates, errs, stop := a.messages.ObserveUpdates(chat)

	go func() {
		for up := range updates {
			up.Route(func(msg domain.ChatMessage) {
				a.log.Info("New message",
					"chat", chat.Hex(),
					"sender", msg.SenderID,
					"content", msg.Content,
					"at", msg.Timestamp.Format(time.RFC3339))
			}, func(other domain.ChatMessageUpdate) {
				a.log.Debug("Ignoring update", "chat", chat.Hex(), "kind", string(other.Kind))
			})
		}
		if err := <-errs; err != nil {
			a.log.Warn("Message stream ended", "chat", chat.Hex(), "error", err)
		}
	}()

	return stop
}

// newChats marks and returns the chats in snapshot not seen before.
func newChats(known map[string]bool, snapshot []domain.Chat) []domain.Chat {
	var fresh []domain.Chat
	for _, chat := range snapshot {
		if known[chat.ID] {
			continue
		}
		known[chat.ID] = true
		fresh = append(fresh, chat)
	}
	return fresh
}
