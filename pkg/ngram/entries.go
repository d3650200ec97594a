package ngram

import (
	"fmt"
	"time"
)

// Entry is one context with its next-word counts in first-observed order.
type Entry struct {
	Context []string
	Next    []Candidate
}

// Entries returns a copy of the whole frequency table. Contexts and their
// candidates appear in the order training first observed them, so feeding the
// result to Restore reproduces Suggest output exactly, ties included.
func (m *Model) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.keys))
	for _, key := range m.keys {
		f := m.table[key]
		next := make([]Candidate, len(f.words))
		for i, w := range f.words {
			next[i] = Candidate{Word: w, Count: f.counts[i]}
		}
		entries = append(entries, Entry{
			Context: append([]string(nil), f.context...),
			Next:    next,
		})
	}
	return entries
}

// Restore rebuilds a model from entries previously returned by Entries.
// It rejects anything the trainer could not have produced: a context of the
// wrong width, empty tokens, a context without candidates, counts below 1,
// and duplicated contexts or candidates. No partial model is ever returned.
func Restore(order int, lastTrained time.Time, entries []Entry) (*Model, error) {
	m, err := NewModel(order)
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		if len(e.Context) != order-1 {
			return nil, fmt.Errorf("%w: entry %d: context has %d tokens, want %d",
				ErrInvalidEntry, i, len(e.Context), order-1)
		}
		for _, tok := range e.Context {
			if tok == "" {
				return nil, fmt.Errorf("%w: entry %d: empty context token", ErrInvalidEntry, i)
			}
		}
		if len(e.Next) == 0 {
			return nil, fmt.Errorf("%w: entry %d: no next words", ErrInvalidEntry, i)
		}

		key := contextKey(e.Context)
		if _, dup := m.table[key]; dup {
			return nil, fmt.Errorf("%w: entry %d: duplicate context %q", ErrInvalidEntry, i, e.Context)
		}

		f := newFollowers(e.Context)
		for _, c := range e.Next {
			if c.Word == "" {
				return nil, fmt.Errorf("%w: entry %d: empty next word", ErrInvalidEntry, i)
			}
			if c.Count < 1 {
				return nil, fmt.Errorf("%w: entry %d: count %d for %q", ErrInvalidEntry, i, c.Count, c.Word)
			}
			if _, dup := f.index[c.Word]; dup {
				return nil, fmt.Errorf("%w: entry %d: duplicate next word %q", ErrInvalidEntry, i, c.Word)
			}
			f.add(c.Word, c.Count)
			m.observations += c.Count
		}
		m.table[key] = f
		m.keys = append(m.keys, key)
	}

	m.lastTrained = lastTrained
	return m, nil
}
