// Package apperr defines the error classes upload workflows report:
// processing failures, object store failures, consistency violations on
// administrative operations, and synchronous-wait timeouts.
package apperr

import (
	"errors"
	"fmt"
)

// ProcessingError covers unreadable or corrupt sources, unsupported
// containers and unresolvable target sizes.
type ProcessingError struct {
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func Processing(message string, err error) *ProcessingError {
	return &ProcessingError{Message: message, Err: err}
}

func Processingf(format string, args ...any) *ProcessingError {
	return &ProcessingError{Message: fmt.Sprintf(format, args...)}
}

// StorageError covers object-store put/stat/delete failures and
// duplicate-name collisions.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(message string, err error) *StorageError {
	return &StorageError{Message: message, Err: err}
}

// ConsistencyError covers mixed-bucket delete batches and unknown tasks on
// administrative operations. It never mutates task state.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string { return e.Message }

func Consistencyf(format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Message: fmt.Sprintf(format, args...)}
}

// ErrWaitTimeout is returned to synchronous callers when no acknowledgement
// arrives within the wait bound. The pipeline itself keeps running.
var ErrWaitTimeout = errors.New("upload confirmation wait timed out")

func IsProcessing(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
