package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zpam/mailtype/pkg/ngram"
)

const sampleText = "please send me the report please send me the invoice " +
	"i am happy i am sad i am happy go zebra go apple go zebra go apple"

func trainedModel(t *testing.T, order int) *ngram.Model {
	t.Helper()
	m, err := ngram.NewModel(order)
	require.NoError(t, err)
	m.Train(strings.Fields(sampleText))
	return m
}

// assertSameSuggestions checks that got answers every context of want
// identically, tie order included.
func assertSameSuggestions(t *testing.T, want, got *ngram.Model) {
	t.Helper()
	require.Equal(t, want.Order(), got.Order())
	assert.Equal(t, want.Observations(), got.Observations())
	assert.Equal(t, want.Entries(), got.Entries())

	for _, e := range want.Entries() {
		w, err := want.Suggest(e.Context, 100)
		require.NoError(t, err)
		g, err := got.Suggest(e.Context, 100)
		require.NoError(t, err, "context %v", e.Context)
		assert.Equal(t, w, g, "context %v", e.Context)
	}
}
