// Package predict turns free text typed by a user into next-word suggestions.
package predict

import (
	"errors"
	"fmt"

	"github.com/zpam/mailtype/pkg/corpus"
	"github.com/zpam/mailtype/pkg/ngram"
)

// ErrInsufficientContext is returned when the text has fewer words than the
// model's context.
var ErrInsufficientContext = errors.New("predict: not enough words for context")

// Status classifies a prediction outcome.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusInsufficientContext Status = "insufficient_context"
	StatusUnknownContext      Status = "unknown_context"
	StatusError               Status = "error"
)

// Result is the outcome of one prediction.
type Result struct {
	Status  Status   `json:"status" msgpack:"st"`
	Context []string `json:"context" msgpack:"ctx"`
	Words   []string `json:"words" msgpack:"s"`
}

// Predictor answers suggestions from a trained model.
type Predictor struct {
	Model *ngram.Model
	K     int // used when Predict is called with k <= 0
}

// New creates a predictor with a default suggestion count.
func New(m *ngram.Model, k int) *Predictor {
	return &Predictor{Model: m, K: k}
}

// ContextFromText normalizes text and returns its last n-1 words. ok is false
// when there are fewer words than that.
func ContextFromText(text string, n int) (context []string, ok bool) {
	words := corpus.Tokenize(corpus.NormalizeText(text))
	width := n - 1
	if width < 0 || len(words) < width {
		return words, false
	}
	return words[len(words)-width:], true
}

// Predict suggests up to k next words for text. An unknown context is a
// normal outcome and returns StatusUnknownContext with a nil error; only
// insufficient context and engine contract failures return errors.
func (p *Predictor) Predict(text string, k int) (*Result, error) {
	if k <= 0 {
		k = p.K
	}

	window, ok := ContextFromText(text, p.Model.Order())
	if !ok {
		return &Result{Status: StatusInsufficientContext, Context: window},
			fmt.Errorf("%w: need %d, got %d", ErrInsufficientContext, p.Model.ContextSize(), len(window))
	}

	words, err := p.Model.Suggest(window, k)
	switch {
	case errors.Is(err, ngram.ErrUnknownContext):
		return &Result{Status: StatusUnknownContext, Context: window}, nil
	case err != nil:
		return &Result{Status: StatusError, Context: window}, err
	}
	return &Result{Status: StatusOK, Context: window, Words: words}, nil
}
