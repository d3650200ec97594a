package ngram

import (
	"errors"
	"fmt"
)

var (
	// ErrInputContract is returned when a caller breaks an operation's
	// preconditions (wrong context width, non-positive k).
	ErrInputContract = errors.New("ngram: input contract violation")

	// ErrContextWidth is returned when a context does not have exactly
	// order-1 tokens. It also matches ErrInputContract.
	ErrContextWidth = errors.New("ngram: context width mismatch")

	// ErrUnknownContext is returned when a well-formed context was never
	// observed during training. It is an expected outcome, not a fault.
	ErrUnknownContext = errors.New("ngram: unknown context")

	// ErrInvalidOrder is returned for an order below 1.
	ErrInvalidOrder = errors.New("ngram: invalid order")

	// ErrInvalidEntry is returned by Restore when restored entries do not
	// describe a table the trainer could have produced.
	ErrInvalidEntry = errors.New("ngram: invalid entry")
)

// ContextWidthError carries the offending and expected context widths.
type ContextWidthError struct {
	Got  int
	Want int
}

func (e *ContextWidthError) Error() string {
	return fmt.Sprintf("ngram: context has %d tokens, model expects %d", e.Got, e.Want)
}

// Is reports whether target is ErrContextWidth or ErrInputContract.
func (e *ContextWidthError) Is(target error) bool {
	return target == ErrContextWidth || target == ErrInputContract
}
