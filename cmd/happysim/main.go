// Command happysim filters the social network survey, scores and calibrates
// the Cobb-Douglas happiness model, and runs the agent-based simulations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/config"
	"github.com/talgya/happiness-abm/internal/logging"
	"github.com/talgya/happiness-abm/internal/persistence"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil && !isCleanExit(err) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isCleanExit reports errors that end the program without a failure:
// exhausted input and an interrupt.
func isCleanExit(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

type configKey struct{}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "happysim",
		Short: "Agent-based model of happiness and time allocation",
		Long: `happysim studies how people split their day between relationships and
economic work, and how happiness spreads between neighbours.

It filters the raw survey workbook per social network, scores each
respondent with a Cobb-Douglas utility, calibrates the model against the
survey, and runs the time-allocation and social-dynamics simulations.

Run without a subcommand for the interactive menu.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			slog.SetDefault(logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()))
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default <root>/happysim.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")
	rootCmd.PersistentFlags().Bool("no-store", false, "Do not record runs and calibrations in the run store")

	rootCmd.AddCommand(
		newVersionCmd(),
		newMenuCmd(),
		newFilterCmd(),
		newScoreCmd(),
		newCalibrateCmd(),
		newRunCmd(),
		newSocialCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root, _ := cmd.Flags().GetString("root")
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(root, path)
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFrom returns the configuration loaded for this invocation.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg, nil
	}
	return loadConfig(cmd)
}

// openStore opens the run store unless --no-store is set, in which case it
// returns a nil DB.
func openStore(cmd *cobra.Command, cfg *config.Config) (*persistence.DB, error) {
	if noStore, _ := cmd.Flags().GetBool("no-store"); noStore {
		return nil, nil
	}
	db, err := persistence.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	slog.Debug("run store opened", "path", cfg.DatabasePath())
	return db, nil
}

func closeStore(db *persistence.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Warn("closing run store", "error", err)
	}
}
