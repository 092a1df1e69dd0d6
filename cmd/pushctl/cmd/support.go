package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/support"
)

var supportFollow time.Duration

// supportCmd represents the support command group
var supportCmd = &cobra.Command{
	Use:   "support",
	Short: "Support conversation commands",
	Long: `Send and read support messages.

Without a session token, send answers locally with canned replies.

Examples:
  pushctl support send "my push keeps failing"
  pushctl support log
  pushctl support log --follow 30s
  pushctl support status`,
}

var supportSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a support message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, cleanup, err := openChannel(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		channel.Send(ctx, args[0])

		// The snapshot shows our optimistic local copy right away; the
		// server echo replaces it on a later poll. Pause briefly so the
		// send has been issued before we read.
		time.Sleep(200 * time.Millisecond)
		view := channel.Snapshot(ctx)
		printMessages(view.Messages)
		return nil
	},
}

var supportLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the support conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, cleanup, err := openChannel(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		deadline := time.Now().Add(supportFollow)
		for {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			view := channel.Snapshot(ctx)
			cancel()

			printMessages(view.Messages)
			if view.Unread > 0 {
				fmt.Printf("(%d unread)\n", view.Unread)
			}

			if supportFollow <= 0 || time.Now().After(deadline) {
				return nil
			}
			fmt.Println("---")
			time.Sleep(5 * time.Second)
		}
	},
}

var supportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show operator presence",
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, cleanup, err := openChannel(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		// Give the presence poll a moment to complete once.
		time.Sleep(500 * time.Millisecond)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		view := channel.Snapshot(ctx)

		if view.Presence.Online {
			name := view.Presence.Name
			if name == "" {
				name = "an operator"
			}
			fmt.Printf("%s is online\n", name)
		} else {
			fmt.Println("No operator online")
		}
		return nil
	},
}

func openChannel(ctx context.Context) (*support.Channel, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	sess := newSession(cfg)
	api, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	channel := support.NewChannel(api, sess, support.Config{Verbose: IsVerbose()})
	channel.Open(ctx)
	// Let the first message poll land before the caller snapshots.
	time.Sleep(300 * time.Millisecond)
	return channel, channel.Close, nil
}

func printMessages(messages []models.SupportMessage) {
	for _, m := range messages {
		who := "you"
		if m.Role == models.RoleOperator {
			who = "support"
		}
		marker := ""
		if m.Pending {
			marker = " (sending)"
		}
		fmt.Printf("[%s] %s: %s%s\n", m.CreatedAt.Format("15:04:05"), who, m.Text, marker)
	}
}

func init() {
	supportLogCmd.Flags().DurationVar(&supportFollow, "follow", 0, "keep polling for this long")
	supportCmd.AddCommand(supportSendCmd)
	supportCmd.AddCommand(supportLogCmd)
	supportCmd.AddCommand(supportStatusCmd)
	rootCmd.AddCommand(supportCmd)
}
