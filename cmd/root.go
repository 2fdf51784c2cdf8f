package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/logging"
)

var (
	dbPath       string
	configPath   string
	strictConfig bool
	logLevel     string

	cfg       *config.Config
	logger    *slog.Logger
	closeLogs = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "cscoach",
	Short: "CS2 match analysis and coaching tool",
	Long: "Analyse CS2 demos or event files: contextual features, roles, mistakes, " +
		"calibrated ratings and outcome predictions.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { closeLogs() },
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".cscoach", "results.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (falls back to $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().BoolVar(&strictConfig, "strict-config", false, "require every correctness key in the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cmd.Context(), config.Options{Path: configPath, Strict: strictConfig})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	level := c.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	l, closer, err := logging.New(os.Stderr, lvl, c.LogFile)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	logger, closeLogs = l, closer
	slog.SetDefault(l)
	return nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
