package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/config"
	"github.com/zpam/mailtype/pkg/ngram"
	"github.com/zpam/mailtype/pkg/store"
)

var (
	rootConfigFile string
	rootLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mailtype",
	Short: "mailtype - autocomplete trained on your own sent mail",
	Long: `mailtype learns how you write from the messages you have sent and
suggests the next word while you type.

It builds an n-gram model from a corpus of sent mail, stores it as a file,
in Redis or in SQLite, and answers suggestions from the command line, an
interactive prompt or a msgpack protocol for editors.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mailtype - personal email autocomplete")
		fmt.Println("Use 'mailtype --help' for usage information")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfigFile, "config", "c", "", "Configuration file path (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Override logging level (debug, info, warn, error)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(trainCmd)
}

// loadConfig reads the configuration named by --config and applies its
// logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rootConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if rootLogLevel != "" {
		cfg.Logging.Level = rootLogLevel
	}
	if err := applyLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyLogging(cfg *config.Config) error {
	return logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
}

// loadModel opens the configured backend and loads the trained model.
func loadModel(ctx context.Context, cfg *config.Config) (*ngram.Model, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open model store: %w", err)
	}
	defer st.Close()

	m, err := st.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("no trained model found in %s store, run 'mailtype train' first", backendName(cfg))
	case errors.Is(err, store.ErrCorrupt):
		return nil, fmt.Errorf("model artifact is corrupt, retrain with 'mailtype train': %w", err)
	case err != nil:
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return m, nil
}

// validateLimit rejects suggestion counts the engine would refuse.
func validateLimit(k int) error {
	if k < 1 {
		return fmt.Errorf("--limit must be >= 1, got %d", k)
	}
	return nil
}

func backendName(cfg *config.Config) string {
	if cfg.Store.Backend == "" {
		return "file"
	}
	return cfg.Store.Backend
}

// describeStore returns where the configured backend keeps the model.
func describeStore(cfg *config.Config) string {
	switch backendName(cfg) {
	case "redis":
		return fmt.Sprintf("redis %s (%s:model:%s)", cfg.Store.Redis.URL, cfg.Store.Redis.KeyPrefix, cfg.Model.Name)
	case "sqlite":
		return fmt.Sprintf("sqlite %s (model %s)", cfg.Store.SQLite.Path, cfg.Model.Name)
	default:
		return cfg.Store.File.Path
	}
}
