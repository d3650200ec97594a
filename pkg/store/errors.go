package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when a stored artifact cannot be decoded or does
	// not describe a valid model.
	ErrCorrupt = errors.New("store: corrupt artifact")

	// ErrNotFound is returned when no model has been saved under the
	// configured location.
	ErrNotFound = errors.New("store: model not found")
)

// CorruptError describes why an artifact was rejected. It matches ErrCorrupt
// and unwraps to the underlying decode or validation error.
type CorruptError struct {
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: corrupt artifact: %s", e.Reason)
	}
	return fmt.Sprintf("store: corrupt artifact: %s: %v", e.Reason, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

func corrupt(reason string, err error) error {
	return &CorruptError{Reason: reason, Err: err}
}
