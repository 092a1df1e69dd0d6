package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/workflow"
)

var pushWatch bool

var pushCmd = &cobra.Command{
	Use:   "push [paths...]",
	Short: "Stage files and run the upload-and-process workflow",
	Long: `Stage the given files or directories and launch the workflow: files
are uploaded first, then backend processing generates and pushes the
repository. Processing never starts before the upload has resolved.

If the upload fails the files stay staged and can be retried with the
same command. If processing fails the project is marked failed and the
uploaded set is not restored locally.

With --watch the first launch is followed by a file watcher: changes
under the given directory re-stage the set, and Ctrl-C exits.

Examples:
  pushctl push --project <id> ./src
  pushctl push --project <id> --watch ./src`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectID == "" {
			return fmt.Errorf("--project is required")
		}

		files, err := workflow.LoadFiles(args)
		if err != nil {
			return fmt.Errorf("load files: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no files to stage under %v", args)
		}

		ctrl, store, cleanup, err := loadController(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if status := ctrl.Stage(files); !status.OK() {
			return fmt.Errorf("%s", status.Message)
		}
		PrintVerbose("staged %d file(s)", len(files))

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		status := ctrl.Launch(ctx)
		recordOutcome(ctx, store, ctrl.Project())
		if !status.OK() {
			return fmt.Errorf("%s", status.Message)
		}
		fmt.Println(status.Message)

		if !pushWatch {
			return nil
		}
		reopenForNextRevision(ctrl)
		return watchAndRelaunch(cmd.Context(), ctrl, args[0])
	},
}

// reopenForNextRevision resets a finished project to draft locally so the
// watcher can stage the next revision. The backend upload endpoint replaces
// the previous set, so re-pushing a completed project regenerates the
// repository.
func reopenForNextRevision(ctrl *workflow.Controller) {
	p := ctrl.Project()
	if p.Status.Terminal() && p.Status != models.StatusArchived {
		p.Status = models.StatusDraft
		ctrl.ApplyRefresh(p)
	}
}

// watchAndRelaunch keeps re-staging and re-launching on filesystem changes
// until interrupted.
func watchAndRelaunch(parent context.Context, ctrl *workflow.Controller, dir string) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	relaunch := make(chan int, 1)
	watcher := workflow.NewWatcher(dir, ctrl, func(n int) {
		select {
		case relaunch <- n:
		default:
		}
	})
	watcher.SetVerbose(IsVerbose())

	go func() {
		if err := watcher.Run(ctx); err != nil {
			PrintError(fmt.Sprintf("watch %s: %v", dir, err), false)
			cancel()
		}
	}()

	fmt.Printf("Watching %s for changes (Ctrl-C to stop)\n", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-relaunch:
			fmt.Printf("Change detected, relaunching with %d file(s)\n", n)
			status := ctrl.Launch(ctx)
			if status.OK() {
				fmt.Println(status.Message)
			} else {
				PrintError(status.Message, false)
			}
			reopenForNextRevision(ctrl)
		}
	}
}

func init() {
	pushCmd.Flags().StringVar(&projectID, "project", "", "project ID")
	pushCmd.Flags().BoolVar(&pushWatch, "watch", false, "watch for changes and relaunch")
	rootCmd.AddCommand(pushCmd)
}
