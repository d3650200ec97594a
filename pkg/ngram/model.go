// Package ngram implements the n-gram frequency model behind mailtype's
// suggestions: a single-pass trainer that counts which word follows every
// context of order-1 words, and a ranked lookup over those counts.
//
// A Model is written only by Train and Restore. Finish training before
// handing the model to readers; Train holds the write lock for the whole pass.
package ngram

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Model counts next-word observations per context.
type Model struct {
	mu sync.RWMutex

	order int
	table map[string]*followers
	keys  []string // first-observed order of contexts

	observations int
	lastTrained  time.Time
}

// followers keeps the next-word counts of one context in first-observed order.
type followers struct {
	context []string
	words   []string
	counts  []int
	index   map[string]int
}

func newFollowers(context []string) *followers {
	return &followers{
		context: append([]string(nil), context...),
		index:   make(map[string]int),
	}
}

func (f *followers) add(word string, n int) {
	if i, ok := f.index[word]; ok {
		f.counts[i] += n
		return
	}
	f.index[word] = len(f.words)
	f.words = append(f.words, word)
	f.counts = append(f.counts, n)
}

func (f *followers) total() int {
	sum := 0
	for _, c := range f.counts {
		sum += c
	}
	return sum
}

// NewModel creates an empty model of the given order. Order is the window
// width: order-1 context tokens plus the predicted token.
func NewModel(order int) (*Model, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: order must be >= 1, got %d", ErrInvalidOrder, order)
	}
	return &Model{
		order: order,
		table: make(map[string]*followers),
	}, nil
}

// Order returns the model's window width.
func (m *Model) Order() int {
	return m.order
}

// ContextSize returns the number of tokens a context must have.
func (m *Model) ContextSize() int {
	return m.order - 1
}

// Train slides a window of Order tokens over tokens, one token at a
// time, and counts the last token of every window against the tokens before
// it. Sequences shorter than Order produce no windows and leave the model
// untouched.
func (m *Model) Train(tokens []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	windows := len(tokens) - m.order + 1
	if windows <= 0 {
		return
	}

	width := m.order - 1
	for i := 0; i < windows; i++ {
		m.observe(tokens[i:i+width], tokens[i+width], 1)
	}

	m.observations += windows
	m.lastTrained = time.Now()
}

// observe is the insert-or-increment step of Train.
// Callers hold the write lock.
func (m *Model) observe(context []string, next string, count int) {
	key := contextKey(context)
	f, ok := m.table[key]
	if !ok {
		f = newFollowers(context)
		m.table[key] = f
		m.keys = append(m.keys, key)
	}
	f.add(next, count)
}

// Observations returns the number of windows counted so far.
func (m *Model) Observations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observations
}

// LastTrained returns when the model last counted a window.
func (m *Model) LastTrained() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTrained
}

// contextKey encodes a context injectively: every token is prefixed with
// its byte length, so no token content can make two contexts collide.
func contextKey(context []string) string {
	var b strings.Builder
	for _, tok := range context {
		b.WriteString(strconv.Itoa(len(tok)))
		b.WriteByte(':')
		b.WriteString(tok)
	}
	return b.String()
}

// ModelInfo summarizes a trained model.
type ModelInfo struct {
	Order        int       `json:"order"`
	Contexts     int       `json:"contexts"`
	Observations int       `json:"observations"`
	Vocabulary   int       `json:"vocabulary"`
	LastTrained  time.Time `json:"last_trained"`
}

// Info returns model statistics.
func (m *Model) Info() *ModelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vocab := make(map[string]struct{})
	for _, f := range m.table {
		for _, tok := range f.context {
			vocab[tok] = struct{}{}
		}
		for _, w := range f.words {
			vocab[w] = struct{}{}
		}
	}

	return &ModelInfo{
		Order:        m.order,
		Contexts:     len(m.table),
		Observations: m.observations,
		Vocabulary:   len(vocab),
		LastTrained:  m.lastTrained,
	}
}

// ContextStats describes how often a context was seen.
type ContextStats struct {
	Context  []string
	Total    int
	Distinct int
}

// TopContexts returns the most frequently observed contexts. Equal totals keep
// first-observed order.
func (m *Model) TopContexts(limit int) []ContextStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]ContextStats, 0, len(m.keys))
	for _, key := range m.keys {
		f := m.table[key]
		stats = append(stats, ContextStats{
			Context:  append([]string(nil), f.context...),
			Total:    f.total(),
			Distinct: len(f.words),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Total > stats[j].Total
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// PrintStats prints model statistics
func (m *Model) PrintStats(w io.Writer) {
	info := m.Info()

	fmt.Fprintf(w, "🧠 N-gram Suggestion Model\n")
	fmt.Fprintf(w, "════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Order: %d (context of %d words)\n", info.Order, info.Order-1)
	fmt.Fprintf(w, "  Contexts: %d\n", info.Contexts)
	fmt.Fprintf(w, "  Observations: %d\n", info.Observations)
	fmt.Fprintf(w, "  Vocabulary size: %d\n", info.Vocabulary)
	if !info.LastTrained.IsZero() {
		fmt.Fprintf(w, "  Last trained: %s\n", info.LastTrained.Format("2006-01-02 15:04:05"))
	}

	top := m.TopContexts(10)
	if len(top) == 0 {
		fmt.Fprintf(w, "\n")
		return
	}

	fmt.Fprintf(w, "\n📈 Top Contexts:\n")
	for i, c := range top {
		label := strings.Join(c.Context, " ")
		if label == "" {
			label = "(start)"
		}
		ranked, _ := m.Followers(c.Context)
		best := ""
		if len(ranked) > 0 {
			best = ranked[0].Word
		}
		fmt.Fprintf(w, "  %2d. %-25s %6d seen, %4d distinct, best: %s\n",
			i+1, label, c.Total, c.Distinct, best)
	}
	fmt.Fprintf(w, "\n")
}
