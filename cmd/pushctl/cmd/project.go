package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/client"
	"github.com/gitpusher/pushkit/internal/history"
	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/workflow"
)

var (
	projectName  string
	projectDesc  string
	projectID    string
	projectForce bool
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for managing workflow projects.

A project holds the uploaded file set and the generated repository.

Examples:
  # List your projects
  pushctl project list

  # Create a new project
  pushctl project create --name my-app --description "demo app"

  # Archive a completed project
  pushctl project archive --id <id>

  # Delete a project
  pushctl project delete --id <id> --force`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectName == "" {
			return fmt.Errorf("--name is required")
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

		project, err := api.CreateProject(ctx, client.CreateProjectInput{
			Name:        projectName,
			Description: projectDesc,
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Printf("Created project %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
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

		projects, err := api.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(projects, "", "  ")
			fmt.Println(string(data))
			return nil
		}
		if len(projects) == 0 {
			fmt.Println("No projects found")
			return nil
		}
		fmt.Printf("%-36s %-20s %-12s %s\n", "ID", "NAME", "STATUS", "REPOSITORY")
		for _, p := range projects {
			fmt.Printf("%-36s %-20s %-12s %s\n", p.ID, p.Name, p.Status, p.RepositoryURL)
		}
		return nil
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, store, cleanup, err := loadController(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		status := ctrl.Archive(ctx)
		if !status.OK() {
			return fmt.Errorf("%s", status.Message)
		}
		recordOutcome(ctx, store, ctrl.Project())
		fmt.Println(status.Message)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !projectForce {
			return fmt.Errorf("refusing to delete without --force")
		}
		ctrl, _, cleanup, err := loadController(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		status := ctrl.Delete(ctx)
		if !status.OK() {
			return fmt.Errorf("%s", status.Message)
		}
		fmt.Println(status.Message)
		return nil
	},
}

// loadController fetches the project named by --id and wraps it in a
// workflow controller, plus the local history store for outcome records.
func loadController(parent context.Context) (*workflow.Controller, *history.Store, func(), error) {
	if projectID == "" {
		return nil, nil, nil, fmt.Errorf("--id is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	sess := newSession(cfg)
	if err := requireAuth(sess); err != nil {
		return nil, nil, nil, err
	}
	api, err := newClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	projects, err := api.ListProjects(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list projects: %w", err)
	}
	var project models.Project
	found := false
	for _, p := range projects {
		if p.ID == projectID {
			project, found = p, true
			break
		}
	}
	if !found {
		return nil, nil, nil, fmt.Errorf("project %s not found", projectID)
	}

	ctrl := workflow.NewController(api, sess, project, nil)
	ctrl.SetVerbose(IsVerbose())

	historyPath := cfg.HistoryPath
	if historyPath == "" {
		historyPath = history.DefaultPath()
	}
	store, err := history.Open(historyPath)
	if err != nil {
		// History is best-effort: the workflow works without it.
		PrintVerbose("history unavailable: %v", err)
		return ctrl, nil, func() {}, nil
	}
	return ctrl, store, func() { store.Close() }, nil
}

// recordOutcome writes a terminal project state to the local history.
func recordOutcome(ctx context.Context, store *history.Store, project models.Project) {
	if store == nil || !project.Status.Terminal() {
		return
	}
	err := store.Record(ctx, history.Outcome{
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		Status:        project.Status,
		RepositoryURL: project.RepositoryURL,
		Error:         project.Error,
		CompletedAt:   time.Now(),
	})
	if err != nil {
		PrintVerbose("record outcome: %v", err)
	}
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectCreateCmd.Flags().StringVar(&projectDesc, "description", "", "project description")
	projectArchiveCmd.Flags().StringVar(&projectID, "id", "", "project ID")
	projectDeleteCmd.Flags().StringVar(&projectID, "id", "", "project ID")
	projectDeleteCmd.Flags().BoolVar(&projectForce, "force", false, "confirm deletion")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
