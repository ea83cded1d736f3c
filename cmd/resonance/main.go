// Package main implements the resonance CLI - behavioural trajectory
// inference from follow-up evidence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resonance/internal/config"
	"resonance/internal/logging"
	"resonance/internal/system"
)

var (
	// Global flags
	cfgPath string
	dbPath  string
	verbose bool
	jsonOut bool
	timeout time.Duration

	logger *zap.Logger
	sys    *system.System
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "resonance",
	Short: "resonance - trajectory inference from what users actually do next",
	Long: `resonance infers what an activity is becoming for a user from what
happens afterwards, never from the activity's category.

Every recorded experience starts with a pending intent. Follow-up evidence
(what the user went on to create, share, or start) moves a per-user
trajectory vector between creative and consumptive, and every assessment
reports quality, resonance, and a position in the quality-by-intent matrix
together with the evidence that produced each number.

State lives in a SQLite file, or in memory when no database is configured.
Configuration is read from resonance.yaml; RESONANCE_CONFIG, RESONANCE_DB,
ANTHROPIC_API_KEY, and RESONANCE_WEB_DISABLED override it.`,
	PersistentPreRunE: setupSystem,
	PersistentPostRun: teardownSystem,
}

// setupSystem builds the logger and the assessment system before any
// subcommand runs.
func setupSystem(cmd *cobra.Command, args []string) error {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err = logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	sys, err = system.FromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build system: %w", err)
	}
	return nil
}

func teardownSystem(cmd *cobra.Command, args []string) {
	if sys != nil {
		if err := sys.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// commandContext returns the per-command context: bounded by --timeout and
// cancelled on SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default resonance.yaml, or RESONANCE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	// Add commands to root
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(followUpCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(predictCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
