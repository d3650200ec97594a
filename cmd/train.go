package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/pkg/corpus"
	"github.com/zpam/mailtype/pkg/ngram"
	"github.com/zpam/mailtype/pkg/store"
)

var (
	trainCorpusDirs  []string
	trainOrder       int
	trainModelPath   string
	trainBackend     string
	trainSenders     []string
	trainMaxMessages int
	trainLuaScript   string
	trainVerbose     bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the n-gram model from sent mail",
	Long: `Train a fresh n-gram model from the sent mail corpus and save it to the
configured store.

Every run rebuilds the model from the whole corpus; an existing model is
replaced, never updated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("corpus") {
			cfg.Corpus.Dirs = trainCorpusDirs
		}
		if cmd.Flags().Changed("order") {
			cfg.Model.Order = trainOrder
		}
		if cmd.Flags().Changed("model") {
			cfg.Store.File.Path = trainModelPath
		}
		if cmd.Flags().Changed("backend") {
			cfg.Store.Backend = trainBackend
		}
		if cmd.Flags().Changed("sender") {
			cfg.Corpus.Senders = trainSenders
		}
		if cmd.Flags().Changed("max-messages") {
			cfg.Corpus.MaxMessages = trainMaxMessages
		}
		if cmd.Flags().Changed("lua") {
			cfg.Corpus.LuaScript = trainLuaScript
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("🧠 mailtype N-gram Training\n")
		fmt.Printf("═══════════════════════════════════════\n")
		for _, dir := range cfg.Corpus.Dirs {
			fmt.Printf("📁 Corpus directory: %s\n", dir)
		}
		fmt.Printf("🔢 Order: %d (context of %d words)\n", cfg.Model.Order, cfg.Model.Order-1)
		if len(cfg.Corpus.Senders) > 0 {
			fmt.Printf("✉️  Senders: %v\n", cfg.Corpus.Senders)
		}
		if cfg.Corpus.MaxMessages > 0 {
			fmt.Printf("📬 Newest messages used: %d\n", cfg.Corpus.MaxMessages)
		}
		if cfg.Corpus.LuaScript != "" {
			fmt.Printf("🔌 Lua cleaning hook: %s\n", cfg.Corpus.LuaScript)
		}
		fmt.Printf("💾 Store: %s\n\n", describeStore(cfg))

		start := time.Now()

		loader, err := corpus.NewLoader(cfg.Corpus)
		if err != nil {
			return fmt.Errorf("failed to create corpus loader: %w", err)
		}
		defer loader.Close()

		res, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load corpus: %w", err)
		}
		printCorpusStats(res.Stats)

		m, err := ngram.NewModel(cfg.Model.Order)
		if err != nil {
			return err
		}
		m.Train(res.Tokens)
		if m.Observations() == 0 {
			fmt.Printf("⚠️  Corpus has fewer than %d tokens, the model is empty\n", cfg.Model.Order)
		}

		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open model store: %w", err)
		}
		defer st.Close()

		if err := st.Save(ctx, m); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}

		duration := time.Since(start)
		fmt.Printf("\n🎉 Training Complete!\n")
		fmt.Printf("📊 Windows observed: %d\n", m.Observations())
		fmt.Printf("⏱️  Time taken: %v\n", duration)
		if secs := duration.Seconds(); secs > 0 {
			fmt.Printf("📈 Rate: %.0f tokens/second\n", float64(res.Stats.Tokens)/secs)
		}
		fmt.Printf("💾 Model saved to: %s\n", describeStore(cfg))

		if trainVerbose {
			fmt.Printf("\n")
			m.PrintStats(os.Stdout)
		}
		return nil
	},
}

func printCorpusStats(s corpus.Stats) {
	fmt.Printf("📂 Files scanned: %d\n", s.Files)
	fmt.Printf("📧 Messages parsed: %d\n", s.Messages)
	if s.Skipped > 0 {
		fmt.Printf("⚠️  Unreadable: %d\n", s.Skipped)
	}
	if s.Filtered > 0 {
		fmt.Printf("🚫 Not sent by you: %d\n", s.Filtered)
	}
	if s.Dropped > 0 {
		fmt.Printf("🔌 Dropped by Lua hook: %d\n", s.Dropped)
	}
	if s.Capped > 0 {
		fmt.Printf("✂️  Older than limit: %d\n", s.Capped)
	}
	fmt.Printf("✅ Messages used: %d\n", s.Used)
	fmt.Printf("🔤 Tokens: %d\n", s.Tokens)
}

func init() {
	trainCmd.Flags().StringSliceVar(&trainCorpusDirs, "corpus", nil, "Sent mail directory (repeatable)")
	trainCmd.Flags().IntVarP(&trainOrder, "order", "n", 3, "N-gram order")
	trainCmd.Flags().StringVarP(&trainModelPath, "model", "m", "", "Model file path for the file backend")
	trainCmd.Flags().StringVar(&trainBackend, "backend", "", "Model store backend (file, redis, sqlite)")
	trainCmd.Flags().StringSliceVar(&trainSenders, "sender", nil, "Your sending address (repeatable)")
	trainCmd.Flags().IntVar(&trainMaxMessages, "max-messages", 0, "Use only the newest N messages (0 = all)")
	trainCmd.Flags().StringVar(&trainLuaScript, "lua", "", "Lua script defining clean(text, message)")
	trainCmd.Flags().BoolVarP(&trainVerbose, "verbose", "v", false, "Print model statistics after training")
}
