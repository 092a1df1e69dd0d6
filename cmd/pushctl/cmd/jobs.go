package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/history"
)

var (
	jobsLocal bool
	jobsLimit int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List processing jobs",
	Long: `List processing jobs from the backend, newest first.

With --local the locally recorded workflow outcomes are listed instead,
which works offline.

Examples:
  pushctl jobs
  pushctl jobs --local --limit 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jobsLocal {
			return listLocalOutcomes(cmd.Context())
		}

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

		jobs, err := api.ListJobs(ctx)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(jobs, "", "  ")
			fmt.Println(string(data))
			return nil
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}
		fmt.Printf("%-36s %-36s %-12s %s\n", "ID", "PROJECT", "STATUS", "CREATED")
		for _, j := range jobs {
			fmt.Printf("%-36s %-36s %-12s %s\n", j.ID, j.ProjectID, j.Status, j.CreatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func listLocalOutcomes(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	historyPath := cfg.HistoryPath
	if historyPath == "" {
		historyPath = history.DefaultPath()
	}
	store, err := history.Open(historyPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	outcomes, err := store.List(ctx, jobsLimit)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Println("No recorded outcomes")
		return nil
	}
	fmt.Printf("%-36s %-20s %-12s %s\n", "PROJECT", "NAME", "STATUS", "REPOSITORY")
	for _, o := range outcomes {
		fmt.Printf("%-36s %-20s %-12s %s\n", o.ProjectID, o.ProjectName, o.Status, o.RepositoryURL)
	}
	return nil
}

func init() {
	jobsCmd.Flags().BoolVar(&jobsLocal, "local", false, "list locally recorded outcomes")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum outcomes to list with --local")
	rootCmd.AddCommand(jobsCmd)
}
