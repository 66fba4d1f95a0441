package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List the user's chats",
	Run:   runChats,
}

func init() {
	rootCmd.AddCommand(chatsCmd)
}

func runChats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := newApp(ctx, cfg)
	defer shutdown(app)

	chats, err := app.Service().UserChats(ctx)
	if err != nil {
		slog.Error("Failed to fetch chats", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAT\tAUTHOR\tRECIPIENT\tCREATED")

	for _, chat := range chats {
		if !chat.Exists {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			chat.ChatContract.Hex(),
			chat.Author.Hex(),
			chat.Recipient.Hex(),
			chat.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
