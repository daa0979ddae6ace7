// Package booking implements the transactional booking engine: seat
// selection, the lock-and-verify commit protocol, cancellation and the
// administrative reset.  All errors come back as values; the ledger is
// never left with a partial write because every multi-step protocol runs
// inside a single transaction that rolls back on failure.
package booking

import (
	"errors"

	"github.com/iliyamo/train-seat-booking/internal/allocation"
)

// ErrInsufficientCapacity mirrors the selection policy's failure: fewer
// unoccupied seats exist than requested.  Retrying will not help until a
// cancellation frees seats.
var ErrInsufficientCapacity = allocation.ErrInsufficientCapacity

// ErrConcurrentConflict means a racing transaction committed between
// selection and locking, invalidating the candidate set.  The whole
// BookSeats call is safe to retry; selection is recomputed from scratch
// and stale candidates are never reused.
var ErrConcurrentConflict = errors.New("seats were taken by a concurrent booking")

// ErrSeatNotFound means the cancellation target does not exist or is not
// currently occupied.
var ErrSeatNotFound = errors.New("seat not found or not occupied")

// ErrNotSeatOwner means the cancellation target is occupied by a
// different user.  The seat is left untouched.
var ErrNotSeatOwner = errors.New("seat is occupied by another user")

// StorageError wraps any failure below the engine's abstraction
// (connectivity, lock-wait timeout, constraint violation).  The
// surrounding transaction has already been rolled back when one of
// these is returned.
type StorageError struct {
	Op  string // which step of the protocol failed
	Err error  // underlying driver error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error { return &StorageError{Op: op, Err: err} }
