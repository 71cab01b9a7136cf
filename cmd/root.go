package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptiq/internal/app"
	"github.com/abhisek/aptiq/internal/config"
	"github.com/abhisek/aptiq/internal/logging"
	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "aptiq",
	Short: "Aptitude quiz scoring and study-stream guidance",
	Long: "aptiq scores aptitude questionnaires and answers career questions, " +
		"recommending academic streams with a generative provider when one is configured.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file (overrides APTIQ_CONFIG)")
	pf.String("db", "", "Path to SQLite database file (overrides APTIQ_DB env var)")
	pf.String("identity", "", "Caller identity used for rate limiting")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(guidanceCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig layers the persistent flags on top of the file and env config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB.Path = p
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	cfg.Log.Output = cmd.ErrOrStderr()
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path, then APTIQ_DB and the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.DB.Path != "" {
		return cfg.DB.Path, store.EnsureDir(cfg.DB.Path)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// newService builds the Service and a context carrying the caller identity.
func newService(cmd *cobra.Command) (*app.Service, context.Context, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if id, _ := cmd.Flags().GetString("identity"); id != "" {
		ctx = orchestrator.WithIdentity(ctx, id)
	}

	svc, err := app.New(ctx, *cfg, app.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return svc, ctx, nil
}
