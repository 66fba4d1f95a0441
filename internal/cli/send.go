package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <chat-address> <message>",
	Short: "Send a message to a chat",
	Args:  cobra.MinimumNArgs(2),
	Run:   runSend,
}

var createChatCmd = &cobra.Command{
	Use:   "create-chat <recipient-address>",
	Short: "Create a chat with a recipient",
	Args:  cobra.ExactArgs(1),
	Run:   runCreateChat,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(createChatCmd)
}

func runSend(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	chat := parseAddress(args[0])
	message := strings.Join(args[1:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	app := newApp(ctx, cfg)
	defer shutdown(app)

	if err := app.Service().SendMessage(ctx, chat, message); err != nil {
		slog.Error("Failed to send message", "error", err)
		os.Exit(1)
	}
	slog.Info("Message submitted", "chat", chat.Hex())
}

func runCreateChat(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	recipient := parseAddress(args[0])

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	app := newApp(ctx, cfg)
	defer shutdown(app)

	if err := app.Service().CreateChat(ctx, recipient); err != nil {
		slog.Error("Failed to create chat", "error", err)
		os.Exit(1)
	}
	slog.Info("Chat creation submitted", "recipient", recipient.Hex())
}
