package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitpusher/pushkit/internal/client"
	"github.com/gitpusher/pushkit/internal/dashboard"
	"github.com/gitpusher/pushkit/internal/metrics"
	"github.com/gitpusher/pushkit/internal/telemetry"
	"github.com/gitpusher/pushkit/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pushmon",
	Short: "pushmon - gitpusher live monitor daemon",
	Long: `pushmon aggregates the backend's realtime feeds and serves them over
HTTP for operator tooling: AI activity and traffic streams, traffic
aggregates, and support presence, plus Prometheus metrics.`,
	RunE: runMonitor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pushmon %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "dashboard listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Dashboard.Address = httpAddr
	}
	cfg.Verbose = verbose

	api, err := client.New(cfg.API.URL, cfg.API.Token)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	aggregator := telemetry.NewAggregator(api, telemetry.Config{
		StatsInterval:    cfg.Feeds.StatsInterval,
		PresenceInterval: cfg.Feeds.PresenceInterval,
		MaxStreamRetries: cfg.Feeds.MaxStreamRetries,
		Verbose:          cfg.Verbose,
	})

	dash, err := dashboard.New(&dashboard.Config{
		Address: cfg.Dashboard.Address,
		Verbose: cfg.Verbose,
	}, aggregator)
	if err != nil {
		return fmt.Errorf("create dashboard server: %w", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	aggregator.Start(ctx)
	defer aggregator.Stop()

	var metricsSrv *metrics.Server
	if !cfg.Metrics.Disabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Address)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- dash.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := dash.Shutdown(shutdownCtx); err != nil {
		log.Printf("dashboard shutdown: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown: %v", err)
		}
	}
	return nil
}
