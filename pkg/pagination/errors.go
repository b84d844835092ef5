package pagination

import (
	"errors"
	"fmt"
)

// ErrNoPage is returned when a ChunkFetcher reports success without a page.
var ErrNoPage = errors.New("chunk fetcher returned no page")

// TransportError is a failed chunk fetch. The fetch is idempotent and can
// be retried.
type TransportError struct {
	ChunkIndex int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch chunk %d: %v", e.ChunkIndex, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvariantViolation is raised (as a panic value) when the controller
// tries to show a display page outside the chunk it holds. It is a bug in
// the state machine, not a runtime condition.
type InvariantViolation struct {
	ChunkIndex  int
	DisplayPage int
	Err         error
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("pagination invariant violated at chunk %d page %d: %v", e.ChunkIndex, e.DisplayPage, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvariantViolation) Unwrap() error {
	return e.Err
}
