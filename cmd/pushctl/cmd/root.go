// Package cmd contains the CLI commands for pushctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/client"
	"github.com/gitpusher/pushkit/internal/session"
	"github.com/gitpusher/pushkit/pkg/config"
)

var (
	// Used for flags
	verbose    bool
	output     string
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pushctl",
	Short: "pushctl - gitpusher workflow client",
	Long: `pushctl drives the gitpusher upload-and-push workflow from the
command line.

A workflow takes a set of local files, uploads them to the backend, and
asks the AI pipeline to generate and push a git repository from them.

Examples:
  # Sign in and store the session token
  pushctl login --email you@example.com

  # Create a project and push a directory through the full workflow
  pushctl project create --name my-app --description "demo app"
  pushctl push --project <id> ./src

  # Watch jobs, credits, and support
  pushctl jobs
  pushctl credits
  pushctl support log`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultClientPath(), "path to client config file")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// loadConfig reads the client configuration for the current invocation.
func loadConfig() (*config.ClientConfig, error) {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newClient builds an API client from the stored configuration.
func newClient(cfg *config.ClientConfig) (*client.Client, error) {
	return client.New(cfg.APIURL, cfg.Token, client.WithRateLimit(10, 20))
}

// newSession builds the caller session from the stored token. A missing
// token yields an anonymous session; commands that need authentication
// must check and fail with a login hint.
func newSession(cfg *config.ClientConfig) *session.Session {
	if cfg.Token == "" {
		return session.Anonymous()
	}
	sess, err := session.New(cfg.Token, "")
	if err != nil {
		return session.Anonymous()
	}
	if sess.Expired() {
		PrintError("stored session has expired, run 'pushctl login'", false)
		return session.Anonymous()
	}
	return sess
}

// requireAuth fails the command when no live session token is available.
func requireAuth(sess *session.Session) error {
	if !sess.Authenticated() {
		return fmt.Errorf("not signed in, run 'pushctl login' first")
	}
	return nil
}
