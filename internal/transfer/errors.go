package transfer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoItems is returned when a job is created with an empty item batch.
	ErrNoItems = errors.New("transfer requires at least one item")

	// ErrNotFound is returned for an unknown transfer id.
	ErrNotFound = errors.New("transfer job not found")

	// ErrIllegalTransition marks an event that is not legal from the job's
	// current status. It is logged and swallowed, never surfaced to users.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// AuthTimeoutError means the external portal login was not completed
// within the policy window. It is terminal for the job.
type AuthTimeoutError struct {
	Timeout time.Duration
}

func (e *AuthTimeoutError) Error() string {
	return fmt.Sprintf("authentication not completed within %s", e.Timeout)
}

// ItemProcessingError wraps a failure for a single item. It is recorded on
// the job but never aborts the batch.
type ItemProcessingError struct {
	ItemID string
	Err    error
}

func (e *ItemProcessingError) Error() string {
	return fmt.Sprintf("item %s: %v", e.ItemID, e.Err)
}

func (e *ItemProcessingError) Unwrap() error { return e.Err }

// FatalError is returned by a driver when the external system is in a
// state where no further items can be processed (unreachable, crashed
// session). It aborts the remaining items and moves the job to error.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("driver fatal error: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
