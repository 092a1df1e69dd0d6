package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/telemetry"
	"github.com/gitpusher/pushkit/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live telemetry monitor",
	Long: `Open the full-screen live monitor: AI activity and traffic feeds from
the backend streams, point-in-time aggregates, and operator presence.

Quitting the monitor closes the streams and stops all polling.`,
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

		aggregator := telemetry.NewAggregator(api, telemetry.Config{Verbose: IsVerbose()})
		return tui.NewMonitor(aggregator).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
