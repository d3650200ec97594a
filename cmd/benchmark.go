package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/zpam/mailtype/pkg/corpus"
	"github.com/zpam/mailtype/pkg/ngram"
	"github.com/zpam/mailtype/pkg/profiler"
)

var (
	benchmarkCorpus     []string
	benchmarkRuns       int
	benchmarkConcurrent int
	benchmarkK          int
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure suggestion latency and hit rate",
	Long: `Replay contexts through the trained model and report suggestion latency
(count, average, min, max, p95, p99) and how often the word that actually
followed is among the top-k suggestions.

With --corpus the contexts come from sent mail, so unseen contexts and misses
are counted. Without it the model's own contexts are replayed with their most
frequent follower as the expected word.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if benchmarkRuns < 1 || benchmarkConcurrent < 1 {
			return fmt.Errorf("--runs and --concurrent must be >= 1")
		}
		k := cfg.Model.Suggestions
		if cmd.Flags().Changed("limit") {
			k = benchmarkK
		}
		if err := validateLimit(k); err != nil {
			return err
		}

		ctx := context.Background()
		prof := profiler.NewProfiler()

		timer := prof.Start("load")
		m, err := loadModel(ctx, cfg)
		if err != nil {
			return err
		}
		timer.Stop()

		var cases []benchmarkCase
		source := "model contexts"
		if len(benchmarkCorpus) > 0 {
			corpusCfg := cfg.Corpus
			corpusCfg.Dirs = benchmarkCorpus
			loader, err := corpus.NewLoader(corpusCfg)
			if err != nil {
				return fmt.Errorf("failed to create corpus loader: %w", err)
			}
			res, err := loader.Load(ctx)
			loader.Close()
			if err != nil {
				return fmt.Errorf("failed to load corpus: %w", err)
			}
			cases = corpusCases(res.Tokens, m.Order())
			source = fmt.Sprintf("corpus %v", benchmarkCorpus)
		} else {
			cases = modelCases(m)
		}
		if len(cases) == 0 {
			return fmt.Errorf("nothing to benchmark: no contexts found in %s", source)
		}

		fmt.Printf("🚀 mailtype Suggestion Benchmark\n")
		fmt.Printf("📚 Model: %s (order %d)\n", describeStore(cfg), m.Order())
		fmt.Printf("📝 Contexts: %d from %s\n", len(cases), source)
		fmt.Printf("🔄 Benchmark runs: %d\n", benchmarkRuns)
		fmt.Printf("⚡ Concurrent workers: %d\n", benchmarkConcurrent)
		fmt.Printf("🎯 Top-k: %d\n\n", k)

		start := time.Now()
		runBenchmark(prof, m, cases, k, benchmarkRuns, benchmarkConcurrent)
		total := time.Since(start)

		prof.PrintReport(os.Stdout)

		outcomes := prof.Outcomes("suggest")
		requests := benchmarkRuns * len(cases)
		fmt.Printf("\n📊 Summary\n")
		fmt.Printf("  Requests: %d in %v (%.0f/second)\n", requests, total, float64(requests)/total.Seconds())
		fmt.Printf("  Hit rate: %.1f%%\n", 100*float64(outcomes["hit"])/float64(requests))
		if known := outcomes["hit"] + outcomes["miss"]; known > 0 {
			fmt.Printf("  Hit rate on known contexts: %.1f%%\n", 100*float64(outcomes["hit"])/float64(known))
		}
		return nil
	},
}

// benchmarkCase is one context and the word that actually followed it.
type benchmarkCase struct {
	context []string
	next    string
}

func corpusCases(tokens []string, order int) []benchmarkCase {
	var cases []benchmarkCase
	for i := 0; i+order <= len(tokens); i++ {
		cases = append(cases, benchmarkCase{
			context: tokens[i : i+order-1],
			next:    tokens[i+order-1],
		})
	}
	return cases
}

func modelCases(m *ngram.Model) []benchmarkCase {
	entries := m.Entries()
	cases := make([]benchmarkCase, 0, len(entries))
	for _, e := range entries {
		best := e.Next[0]
		for _, c := range e.Next[1:] {
			if c.Count > best.Count {
				best = c
			}
		}
		cases = append(cases, benchmarkCase{context: e.Context, next: best.Word})
	}
	return cases
}

// runBenchmark replays every case runs times with at most concurrent
// goroutines, recording a hit, miss or unknown outcome for each.
func runBenchmark(prof *profiler.Profiler, m *ngram.Model, cases []benchmarkCase, k, runs, concurrent int) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrent)

	for run := 0; run < runs; run++ {
		for _, c := range cases {
			wg.Add(1)
			semaphore <- struct{}{}

			go func(c benchmarkCase) {
				defer wg.Done()
				defer func() { <-semaphore }()

				timer := prof.Start("suggest")
				words, err := m.Suggest(c.context, k)
				switch {
				case errors.Is(err, ngram.ErrUnknownContext):
					timer.StopWith("unknown")
				case err != nil:
					timer.StopWith("error")
				case contains(words, c.next):
					timer.StopWith("hit")
				default:
					timer.StopWith("miss")
				}
			}(c)
		}
	}
	wg.Wait()
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func init() {
	benchmarkCmd.Flags().StringSliceVar(&benchmarkCorpus, "corpus", nil, "Replay contexts from this sent mail directory (repeatable)")
	benchmarkCmd.Flags().IntVarP(&benchmarkRuns, "runs", "r", 3, "Number of benchmark runs")
	benchmarkCmd.Flags().IntVarP(&benchmarkConcurrent, "concurrent", "j", 1, "Number of concurrent workers")
	benchmarkCmd.Flags().IntVarP(&benchmarkK, "limit", "k", 5, "Number of suggestions per request")
}
