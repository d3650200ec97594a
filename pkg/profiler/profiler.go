// Package profiler records operation latencies and outcome counts for
// mailtype benchmark runs.
package profiler

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// Profiler tracks execution times and outcomes for named operations
type Profiler struct {
	mu       sync.RWMutex
	times    map[string][]time.Duration
	outcomes map[string]map[string]int
}

// NewProfiler creates a new profiler
func NewProfiler() *Profiler {
	return &Profiler{
		times:    make(map[string][]time.Duration),
		outcomes: make(map[string]map[string]int),
	}
}

// Timer represents a timing operation
type Timer struct {
	profiler *Profiler
	name     string
	start    time.Time
}

// Start begins timing an operation
func (p *Profiler) Start(name string) *Timer {
	return &Timer{
		profiler: p,
		name:     name,
		start:    time.Now(),
	}
}

// Stop completes the timing and records the duration
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	t.profiler.Record(t.name, duration)
	return duration
}

// StopWith records the duration and counts outcome for the operation.
func (t *Timer) StopWith(outcome string) time.Duration {
	duration := t.Stop()
	t.profiler.Count(t.name, outcome)
	return duration
}

// Record manually records a timing
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	p.times[name] = append(p.times[name], duration)
	p.mu.Unlock()
}

// Count increments the outcome counter of an operation.
func (p *Profiler) Count(name, outcome string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.outcomes[name]
	if !ok {
		m = make(map[string]int)
		p.outcomes[name] = m
	}
	m[outcome]++
}

// Outcomes returns a copy of the outcome counters of an operation.
func (p *Profiler) Outcomes(name string) map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]int, len(p.outcomes[name]))
	for k, v := range p.outcomes[name] {
		out[k] = v
	}
	return out
}

// Stats contains timing statistics
type Stats struct {
	Name    string
	Count   int
	Total   time.Duration
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
	Median  time.Duration
	P95     time.Duration
	P99     time.Duration
}

// GetStats returns timing statistics for an operation
func (p *Profiler) GetStats(name string) *Stats {
	p.mu.RLock()
	times := p.times[name]
	sorted := make([]time.Duration, len(times))
	copy(sorted, times)
	p.mu.RUnlock()

	if len(sorted) == 0 {
		return &Stats{Name: name}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, t := range sorted {
		total += t
	}

	return &Stats{
		Name:    name,
		Count:   len(sorted),
		Total:   total,
		Average: total / time.Duration(len(sorted)),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Median:  sorted[len(sorted)/2],
		P95:     percentile(sorted, 0.95),
		P99:     percentile(sorted, 0.99),
	}
}

// percentile uses the nearest-rank method on sorted durations: the value at
// rank ceil(q*N).
func percentile(sorted []time.Duration, q float64) time.Duration {
	idx := int(math.Ceil(float64(len(sorted))*q)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// GetAllStats returns statistics for all tracked operations
func (p *Profiler) GetAllStats() []*Stats {
	p.mu.RLock()
	names := make([]string, 0, len(p.times))
	for name := range p.times {
		names = append(names, name)
	}
	p.mu.RUnlock()

	sort.Strings(names)

	stats := make([]*Stats, 0, len(names))
	for _, name := range names {
		stats = append(stats, p.GetStats(name))
	}
	return stats
}

// Reset clears all timing data
func (p *Profiler) Reset() {
	p.mu.Lock()
	p.times = make(map[string][]time.Duration)
	p.outcomes = make(map[string]map[string]int)
	p.mu.Unlock()
}

// PrintReport prints a formatted timing report followed by outcome counts
func (p *Profiler) PrintReport(w io.Writer) {
	stats := p.GetAllStats()

	if len(stats) == 0 {
		fmt.Fprintln(w, "No timing data available")
		return
	}

	fmt.Fprintf(w, "⏱️  Performance Profile Report\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "%-20s %8s %10s %8s %8s %8s %8s %8s %8s\n",
		"Operation", "Count", "Total", "Avg", "Min", "Median", "Max", "P95", "P99")
	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────────────────\n")

	for _, stat := range stats {
		if stat.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "%-20s %8d %10s %8s %8s %8s %8s %8s %8s\n",
			truncate(stat.Name, 20),
			stat.Count,
			formatDuration(stat.Total),
			formatDuration(stat.Average),
			formatDuration(stat.Min),
			formatDuration(stat.Median),
			formatDuration(stat.Max),
			formatDuration(stat.P95),
			formatDuration(stat.P99),
		)
	}
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════════════════\n")

	for _, stat := range stats {
		outcomes := p.Outcomes(stat.Name)
		if len(outcomes) == 0 {
			continue
		}
		keys := make([]string, 0, len(outcomes))
		for k := range outcomes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(w, "%s outcomes:\n", stat.Name)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-22s %8d (%.1f%%)\n", k, outcomes[k],
				100*float64(outcomes[k])/float64(stat.Count))
		}
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%.0fns", float64(d.Nanoseconds()))
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
