package collection

import (
	"errors"

	"github.com/mosaek2/lepisong/internal/sequencer"
)

var (
	// ErrNotFound: the collection or item does not exist. Not retryable.
	ErrNotFound = sequencer.ErrNotFound
	// ErrOutOfRange: a position argument is outside [1, N]. Not retryable.
	ErrOutOfRange = sequencer.ErrOutOfRange
	// ErrBusy: the per-collection scope could not be taken in time. Retryable.
	ErrBusy = errors.New("collection busy, retry later")
	// ErrCorruptState: stored positions are not 1..N. Needs an operator.
	ErrCorruptState = errors.New("collection state corrupt")
	// ErrExists: a collection with that key already exists.
	ErrExists = errors.New("collection already exists")
)
