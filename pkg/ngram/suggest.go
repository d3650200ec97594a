package ngram

import (
	"fmt"
	"sort"
)

// Candidate is a possible next word and how often it followed a context.
type Candidate struct {
	Word  string `json:"word" msgpack:"word"`
	Count int    `json:"count" msgpack:"count"`
}

// Suggest returns at most k next words for context, most frequent first.
// Words with equal counts keep the order in which training first saw them.
//
// context must hold exactly ContextSize tokens, otherwise ErrContextWidth is
// returned without a lookup. A context that training never saw returns
// ErrUnknownContext. Fewer than k candidates is not an error.
func (m *Model) Suggest(context []string, k int) ([]string, error) {
	if err := m.checkWidth(context); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInputContract, k)
	}

	ranked, err := m.Followers(context)
	if err != nil {
		return nil, err
	}

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	words := make([]string, len(ranked))
	for i, c := range ranked {
		words[i] = c.Word
	}
	return words, nil
}

// Followers returns every candidate for context ranked like Suggest, with
// counts. The returned slice is a copy.
func (m *Model) Followers(context []string) ([]Candidate, error) {
	if err := m.checkWidth(context); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.table[contextKey(context)]
	if !ok {
		return nil, ErrUnknownContext
	}

	ranked := make([]Candidate, len(f.words))
	for i, w := range f.words {
		ranked[i] = Candidate{Word: w, Count: f.counts[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked, nil
}

func (m *Model) checkWidth(context []string) error {
	if len(context) != m.order-1 {
		return &ContextWidthError{Got: len(context), Want: m.order - 1}
	}
	return nil
}
