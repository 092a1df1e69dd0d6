package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/credits"
)

var creditsSimulate int

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the account credit balance",
	Long: `Show the authoritative credit balance for the signed-in account.

Premium and business plans always show "unlimited". With --simulate the
rendered value is overridden for demo purposes and carries a visible
test-mode marker; the backend value is untouched.

Examples:
  pushctl credits
  pushctl credits --simulate 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requireAuth(newSession(cfg)); err != nil {
			return err
		}
		api, err := newClient(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		ledger := credits.NewLedger(api)
		if err := ledger.Refresh(ctx); err != nil {
			return err
		}
		if cmd.Flags().Changed("simulate") {
			ledger.Simulate(creditsSimulate)
		}

		fmt.Printf("Credits: %s\n", ledger.Render())
		return nil
	},
}

func init() {
	creditsCmd.Flags().IntVar(&creditsSimulate, "simulate", 0, "render this value instead, flagged as test mode")
	rootCmd.AddCommand(creditsCmd)
}
