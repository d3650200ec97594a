package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Generate and manage mailtype configuration files`,
}

var configGenCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a default configuration file with all options`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := "mailtype.yaml"
		if len(args) > 0 {
			configPath = args[0]
		}

		if _, err := os.Stat(configPath); err == nil {
			overwrite, _ := cmd.Flags().GetBool("force")
			if !overwrite {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}
		}

		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("✅ Configuration file generated: %s\n", configPath)
		fmt.Printf("📝 Set corpus.dirs and corpus.senders to your sent mail\n")
		fmt.Printf("🚀 Use 'mailtype train --config %s' to train a model\n", configPath)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax and logical errors`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := args[0]

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("❌ Configuration validation failed: %w", err)
		}

		fmt.Printf("✅ Configuration is valid: %s\n", configPath)

		if warnings := validateConfigLogic(cfg); len(warnings) > 0 {
			fmt.Printf("\n⚠️  Warnings:\n")
			for _, warning := range warnings {
				fmt.Printf("  - %s\n", warning)
			}
		}

		fmt.Printf("\n📊 Configuration Summary:\n")
		fmt.Printf("  Order: %d\n", cfg.Model.Order)
		fmt.Printf("  Corpus directories: %d\n", len(cfg.Corpus.Dirs))
		fmt.Printf("  Senders: %d\n", len(cfg.Corpus.Senders))
		fmt.Printf("  Store backend: %s\n", backendName(cfg))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Show current configuration",
	Long:  `Display the configuration with all values`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.Config
		var err error

		if len(args) > 0 {
			cfg, err = config.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Printf("Configuration: %s\n\n", args[0])
		} else {
			cfg = config.DefaultConfig()
			fmt.Printf("Default Configuration:\n\n")
		}

		fmt.Printf("🧠 Model:\n")
		fmt.Printf("  Order: %d (context of %d words)\n", cfg.Model.Order, cfg.Model.Order-1)
		fmt.Printf("  Suggestions: %d\n", cfg.Model.Suggestions)
		fmt.Printf("  Name: %s\n", cfg.Model.Name)

		fmt.Printf("\n📁 Corpus:\n")
		fmt.Printf("  Directories: %s\n", strings.Join(cfg.Corpus.Dirs, ", "))
		fmt.Printf("  Extensions: %q\n", cfg.Corpus.Extensions)
		fmt.Printf("  Senders: %s\n", listOrAll(cfg.Corpus.Senders))
		fmt.Printf("  Max messages: %d\n", cfg.Corpus.MaxMessages)
		if cfg.Corpus.LuaScript != "" {
			fmt.Printf("  Lua script: %s\n", cfg.Corpus.LuaScript)
		}

		fmt.Printf("\n💾 Store:\n")
		fmt.Printf("  Backend: %s\n", backendName(cfg))
		fmt.Printf("  Location: %s\n", describeStore(cfg))
		if backendName(cfg) == "file" {
			fmt.Printf("  Format: %s\n", cfg.Store.File.Format)
		}
		if backendName(cfg) == "redis" && cfg.Store.Redis.TTL != "" {
			fmt.Printf("  TTL: %s\n", cfg.Store.Redis.TTL)
		}

		fmt.Printf("\n📥 Capture:\n")
		fmt.Printf("  Listen: %s://%s\n", cfg.Capture.Network, cfg.Capture.Address)
		fmt.Printf("  Spool: %s\n", cfg.Capture.SpoolDir)
		fmt.Printf("  Senders: %s\n", listOrAll(cfg.Capture.Senders))

		fmt.Printf("\n📝 Logging:\n")
		fmt.Printf("  Level: %s\n", cfg.Logging.Level)
		fmt.Printf("  Format: %s\n", cfg.Logging.Format)
		if cfg.Logging.File != "" {
			fmt.Printf("  File: %s\n", cfg.Logging.File)
		}
		return nil
	},
}

// validateConfigLogic performs additional logical validation
func validateConfigLogic(cfg *config.Config) []string {
	var warnings []string

	if len(cfg.Corpus.Senders) == 0 {
		warnings = append(warnings, "No senders configured - every message in the corpus is treated as yours")
	}
	if cfg.Model.Order == 1 {
		warnings = append(warnings, "Order 1 ignores context and always suggests the most common words")
	}
	if cfg.Model.Order > 5 {
		warnings = append(warnings, "High order needs a large corpus - most contexts will be unknown")
	}
	if cfg.Corpus.MaxMessages == 0 {
		warnings = append(warnings, "max_messages is 0 - the whole corpus is used")
	}
	for _, dir := range cfg.Corpus.Dirs {
		if _, err := os.Stat(dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("Corpus directory %s is not accessible", dir))
		}
	}
	if cfg.Serve.MaxLimit > 0 && cfg.Model.Suggestions > cfg.Serve.MaxLimit {
		warnings = append(warnings, "model.suggestions is larger than serve.max_limit")
	}

	return warnings
}

func listOrAll(items []string) string {
	if len(items) == 0 {
		return "(all)"
	}
	return strings.Join(items, ", ")
}

func init() {
	configCmd.AddCommand(configGenCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configGenCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
