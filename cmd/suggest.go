package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/pkg/predict"
)

var (
	suggestK    int
	suggestJSON bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [text...]",
	Short: "Suggest the next word for some text",
	Long: `Suggest likely next words for the given text using the trained model.

The last order-1 words of the text are looked up after the same cleaning
that was applied during training.`,
	Example: `  mailtype suggest "could you please send"
  mailtype suggest -k 10 thanks for the`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		m, err := loadModel(context.Background(), cfg)
		if err != nil {
			return err
		}

		k := cfg.Model.Suggestions
		if cmd.Flags().Changed("limit") {
			k = suggestK
		}
		if err := validateLimit(k); err != nil {
			return err
		}

		text := strings.Join(args, " ")
		res, err := predict.New(m, k).Predict(text, k)
		if err != nil && !errors.Is(err, predict.ErrInsufficientContext) {
			return err
		}

		if suggestJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		switch res.Status {
		case predict.StatusInsufficientContext:
			fmt.Printf("⚠️  Please enter at least %d words\n", m.ContextSize())
		case predict.StatusUnknownContext:
			fmt.Printf("🤷 No suggestions found for context: %s\n", strings.Join(res.Context, " "))
		default:
			fmt.Printf("💡 Suggestions after %q:\n", strings.Join(res.Context, " "))
			for i, w := range res.Words {
				fmt.Printf("  %2d. %s\n", i+1, w)
			}
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVarP(&suggestK, "limit", "k", 5, "Number of suggestions")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(suggestCmd)
}
