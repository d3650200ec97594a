package ngram

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, order int) *Model {
	t.Helper()
	m, err := NewModel(order)
	require.NoError(t, err)
	return m
}

func TestNewModelRejectsBadOrder(t *testing.T) {
	for _, order := range []int{0, -1} {
		_, err := NewModel(order)
		assert.ErrorIs(t, err, ErrInvalidOrder, "order %d", order)
	}
}

func TestTrainWindowCount(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		order  int
		want   int
	}{
		{"empty", nil, 3, 0},
		{"shorter than order", []string{"hello", "there"}, 3, 0},
		{"exactly one window", []string{"a", "b", "c"}, 3, 1},
		{"overlapping windows", []string{"a", "b", "c", "d", "e"}, 3, 3},
		{"bigram", []string{"a", "b", "c", "d"}, 2, 3},
		{"unigram", []string{"a", "b", "a"}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, tt.order)
			m.Train(tt.tokens)
			assert.Equal(t, tt.want, m.Observations())

			total := 0
			for _, e := range m.Entries() {
				for _, c := range e.Next {
					total += c.Count
				}
			}
			assert.Equal(t, tt.want, total)
		})
	}
}

func TestTrainEmptyIsNoOp(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("please send me the report please send me the invoice"))

	before := m.Entries()
	trained := m.LastTrained()

	m.Train(nil)
	m.Train([]string{})

	assert.Equal(t, before, m.Entries())
	assert.Equal(t, trained, m.LastTrained())
}

func TestTrainShortSequenceLeavesTableEmpty(t *testing.T) {
	m := newTestModel(t, 4)
	m.Train([]string{"one", "two", "three"})

	assert.Empty(t, m.Entries())
	assert.True(t, m.LastTrained().IsZero())
}

func TestSuggestReportScenario(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("please send me the report please send me the invoice"))

	ranked, err := m.Followers([]string{"please", "send"})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Word: "me", Count: 2}}, ranked)

	words, err := m.Suggest([]string{"please", "send"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"me"}, words)

	words, err = m.Suggest([]string{"me", "the"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"report", "invoice"}, words)
}

func TestSuggestRanksByCount(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("i am sad i am happy i am happy i am happy"))

	words, err := m.Suggest([]string{"i", "am"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "sad"}, words)

	words, err = m.Suggest([]string{"i", "am"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"happy"}, words)
}

func TestSuggestTiesKeepFirstObservedOrder(t *testing.T) {
	m := newTestModel(t, 2)
	m.Train(strings.Fields("go zebra go apple go mango go apple go zebra"))

	ranked, err := m.Followers([]string{"go"})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Word: "zebra", Count: 2},
		{Word: "apple", Count: 2},
		{Word: "mango", Count: 1},
	}, ranked)

	for i := 0; i < 20; i++ {
		words, err := m.Suggest([]string{"go"}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"zebra", "apple", "mango"}, words)
	}
}

func TestSuggestKLargerThanCandidates(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("i am sad i am happy i am happy"))

	words, err := m.Suggest([]string{"i", "am"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "sad"}, words)
}

func TestSuggestUnknownContext(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("please send me the report"))

	words, err := m.Suggest([]string{"never", "seen"}, 5)
	assert.Nil(t, words)
	assert.ErrorIs(t, err, ErrUnknownContext)
	assert.NotErrorIs(t, err, ErrInputContract)
}

func TestSuggestContextOrderMatters(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("send please now"))

	_, err := m.Suggest([]string{"please", "send"}, 1)
	assert.ErrorIs(t, err, ErrUnknownContext)

	words, err := m.Suggest([]string{"send", "please"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"now"}, words)
}

func TestSuggestWidthViolation(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("please send me the report"))

	for _, ctx := range [][]string{nil, {"send"}, {"please", "send", "me"}} {
		words, err := m.Suggest(ctx, 3)
		assert.Nil(t, words)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrContextWidth)
		assert.ErrorIs(t, err, ErrInputContract)
		assert.NotErrorIs(t, err, ErrUnknownContext)

		var widthErr *ContextWidthError
		require.True(t, errors.As(err, &widthErr))
		assert.Equal(t, len(ctx), widthErr.Got)
		assert.Equal(t, 2, widthErr.Want)
	}
}

func TestSuggestRejectsNonPositiveK(t *testing.T) {
	m := newTestModel(t, 2)
	m.Train([]string{"a", "b"})

	for _, k := range []int{0, -3} {
		_, err := m.Suggest([]string{"a"}, k)
		assert.ErrorIs(t, err, ErrInputContract)
		assert.NotErrorIs(t, err, ErrContextWidth)
	}
}

func TestContextKeyIsInjective(t *testing.T) {
	assert.NotEqual(t,
		contextKey([]string{"ab", "c"}),
		contextKey([]string{"a", "bc"}))
	assert.NotEqual(t,
		contextKey([]string{"a:1", "b"}),
		contextKey([]string{"a", "1:b"}))
	assert.Equal(t, contextKey([]string{"x", "y"}), contextKey([]string{"x", "y"}))
}

func TestEntriesAreCopies(t *testing.T) {
	m := newTestModel(t, 2)
	m.Train([]string{"hello", "world"})

	entries := m.Entries()
	entries[0].Context[0] = "changed"
	entries[0].Next[0].Count = 99

	words, err := m.Followers([]string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Word: "world", Count: 1}}, words)
}

func TestRestoreRoundTrip(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("go zebra go apple go mango go apple go zebra i am happy i am sad"))

	trainedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	restored, err := Restore(m.Order(), trainedAt, m.Entries())
	require.NoError(t, err)

	assert.Equal(t, m.Order(), restored.Order())
	assert.Equal(t, m.Observations(), restored.Observations())
	assert.Equal(t, m.Entries(), restored.Entries())
	assert.Equal(t, trainedAt, restored.LastTrained())

	for _, e := range m.Entries() {
		want, err := m.Suggest(e.Context, 10)
		require.NoError(t, err)
		got, err := restored.Suggest(e.Context, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, "context %v", e.Context)
	}
}

func TestRestoreRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"wrong width", []Entry{{Context: []string{"a"}, Next: []Candidate{{"b", 1}}}}},
		{"empty token", []Entry{{Context: []string{"a", ""}, Next: []Candidate{{"b", 1}}}}},
		{"no next words", []Entry{{Context: []string{"a", "b"}}}},
		{"empty next word", []Entry{{Context: []string{"a", "b"}, Next: []Candidate{{"", 1}}}}},
		{"zero count", []Entry{{Context: []string{"a", "b"}, Next: []Candidate{{"c", 0}}}}},
		{"negative count", []Entry{{Context: []string{"a", "b"}, Next: []Candidate{{"c", -2}}}}},
		{"duplicate next", []Entry{{Context: []string{"a", "b"}, Next: []Candidate{{"c", 1}, {"c", 2}}}}},
		{"duplicate context", []Entry{
			{Context: []string{"a", "b"}, Next: []Candidate{{"c", 1}}},
			{Context: []string{"a", "b"}, Next: []Candidate{{"d", 1}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Restore(3, time.Time{}, tt.entries)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}

	_, err := Restore(0, time.Time{}, nil)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestInfoAndTopContexts(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("please send me the report please send me the invoice"))

	info := m.Info()
	assert.Equal(t, 3, info.Order)
	assert.Equal(t, 8, info.Observations)
	assert.Equal(t, 5, info.Contexts)
	assert.Equal(t, 6, info.Vocabulary)

	top := m.TopContexts(2)
	require.Len(t, top, 2)
	assert.Equal(t, []string{"please", "send"}, top[0].Context)
	assert.Equal(t, 2, top[0].Total)
	assert.Equal(t, []string{"send", "me"}, top[1].Context)

	var buf bytes.Buffer
	m.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Observations: 8")
	assert.Contains(t, buf.String(), "please send")
}

func TestConcurrentReadersAfterTraining(t *testing.T) {
	m := newTestModel(t, 3)
	m.Train(strings.Fields("i am happy i am sad i am happy"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				words, err := m.Suggest([]string{"i", "am"}, 2)
				if err != nil || len(words) != 2 || words[0] != "happy" {
					t.Errorf("unexpected suggestion %v, %v", words, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
