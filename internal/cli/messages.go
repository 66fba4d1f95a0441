package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-address>",
	Short: "List a chat's messages, newest first",
	Args:  cobra.ExactArgs(1),
	Run:   runMessages,
}

func init() {
	rootCmd.AddCommand(messagesCmd)
}

func runMessages(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	chat := parseAddress(args[0])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := newApp(ctx, cfg)
	defer shutdown(app)

	msgs, err := app.Messages().GetAllMessages(ctx, chat)
	if err != nil {
		slog.Error("Failed to fetch messages", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "AT\tSENDER\tMESSAGE")

	for _, msg := range msgs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			msg.Timestamp.Format(time.RFC3339),
			msg.SenderID,
			msg.Content)
	}
	_ = w.Flush()
}

// parseAddress validates a hex address argument or exits.
func parseAddress(arg string) common.Address {
	if !common.IsHexAddress(arg) {
		slog.Error("Not a valid address", "argument", arg)
		os.Exit(1)
	}
	return common.HexToAddress(arg)
}
