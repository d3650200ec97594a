package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/pkg/store"
)

var (
	statsTop  int
	statsMeta bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show trained model statistics",
	Long: `Show information about the trained model: order, number of contexts,
observed windows, vocabulary and the most frequent contexts.

With --meta and the redis backend only the stored summary is read, without
fetching the model itself. With the sqlite backend every stored model name
is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if statsMeta && backendName(cfg) == "redis" {
			st, err := store.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open model store: %w", err)
			}
			defer st.Close()

			info, err := st.(*store.RedisStore).Meta(ctx)
			if err != nil {
				return fmt.Errorf("failed to read model summary: %w", err)
			}
			fmt.Printf("🧠 Model %s (%s)\n", cfg.Model.Name, describeStore(cfg))
			fmt.Printf("  Order: %d\n", info.Order)
			fmt.Printf("  Contexts: %d\n", info.Contexts)
			fmt.Printf("  Observations: %d\n", info.Observations)
			fmt.Printf("  Vocabulary size: %d\n", info.Vocabulary)
			if !info.LastTrained.IsZero() {
				fmt.Printf("  Last trained: %s\n", info.LastTrained.Format("2006-01-02 15:04:05"))
			}
			return nil
		}

		if backendName(cfg) == "sqlite" {
			sqlStore, err := store.OpenSQLStore(ctx, cfg.Store.SQLite.Path, cfg.Model.Name)
			if err != nil {
				return fmt.Errorf("failed to open model store: %w", err)
			}
			names, err := sqlStore.Models(ctx)
			sqlStore.Close()
			if err != nil {
				return err
			}
			fmt.Printf("🗄️  Models in %s: %s\n\n", cfg.Store.SQLite.Path, strings.Join(names, ", "))
		}

		m, err := loadModel(ctx, cfg)
		if err != nil {
			return err
		}
		m.PrintStats(os.Stdout)

		if statsTop > 0 {
			fmt.Printf("\n🔝 Top %d contexts by count:\n", statsTop)
			for i, c := range m.TopContexts(statsTop) {
				fmt.Printf("  %2d. %-30s %6d (%d distinct)\n", i+1, strings.Join(c.Context, " "), c.Total, c.Distinct)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 0, "Also list the N most frequent contexts")
	statsCmd.Flags().BoolVar(&statsMeta, "meta", false, "Read only the stored summary (redis backend)")

	rootCmd.AddCommand(statsCmd)
}
