package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/internal/cli"
	"github.com/zpam/mailtype/pkg/predict"
)

var interactiveK int

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"repl"},
	Short:   "Type text and get suggestions in a prompt",
	Long: `Start an interactive prompt that suggests next words for each line typed.

Commands inside the prompt:
  q         quit
  num X     change the number of suggestions
  debug     toggle showing the cleaned text and context used`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		k := cfg.Model.Suggestions
		if cmd.Flags().Changed("limit") {
			k = interactiveK
		}
		if err := validateLimit(k); err != nil {
			return err
		}

		m, err := loadModel(context.Background(), cfg)
		if err != nil {
			return err
		}
		fmt.Printf("📚 Model loaded from %s\n\n", describeStore(cfg))

		return cli.NewInputHandler(predict.New(m, k), os.Stdin, os.Stdout).Start()
	},
}

func init() {
	interactiveCmd.Flags().IntVarP(&interactiveK, "limit", "k", 5, "Initial number of suggestions")

	rootCmd.AddCommand(interactiveCmd)
}
