package booking

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/train-seat-booking/internal/allocation"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
)

// Engine executes booking operations against the seat ledger.  It is
// safe for concurrent use: every operation runs in its own transaction
// and only ever locks the rows it is about to mutate, so bookings on
// unrelated rows proceed in parallel.
//
// The engine never retries internally.  ErrConcurrentConflict is
// surfaced to the caller, who decides whether and how often to retry.
type Engine struct {
	db    *sql.DB
	seats *repository.SeatRepo
}

// NewEngine returns an Engine backed by the given DB handle and seat
// repository.
func NewEngine(db *sql.DB, seats *repository.SeatRepo) *Engine {
	if db == nil || seats == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{db: db, seats: seats}
}

// BookSeats assigns count seats to userID and commits the assignment
// atomically.  Selection runs optimistically against an unlocked
// snapshot; only the small candidate set is then locked and re-verified
// before the write.  Without the re-check, two concurrent requests could
// both select overlapping seats from a stale snapshot.
//
// The returned seats carry the committed occupancy fields, in selection
// order.  Possible errors: ErrInsufficientCapacity, ErrConcurrentConflict
// (retry the whole call), or *StorageError.
func (e *Engine) BookSeats(ctx context.Context, count int, userID uint64) ([]model.Seat, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	snapshot, err := e.seats.ListAllTx(ctx, tx)
	if err != nil {
		return nil, storageErr("snapshot", err)
	}

	candidates, err := allocation.Select(count, snapshot)
	if err != nil {
		if errors.Is(err, allocation.ErrInsufficientCapacity) {
			return nil, ErrInsufficientCapacity
		}
		return nil, err
	}

	// Lock in ascending ID order so concurrent bookings that overlap
	// acquire locks in the same sequence instead of deadlocking.
	ids := make([]uint64, len(candidates))
	for i, s := range candidates {
		ids[i] = s.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	status, err := e.seats.LockStatusTx(ctx, tx, ids)
	if err != nil {
		return nil, storageErr("lock", err)
	}
	for _, id := range ids {
		occupied, ok := status[id]
		if !ok {
			return nil, storageErr("lock", errors.New("candidate seat disappeared"))
		}
		if occupied {
			return nil, ErrConcurrentConflict
		}
	}

	now := time.Now().UTC()
	if err := e.seats.OccupyTx(ctx, tx, ids, userID, now); err != nil {
		return nil, storageErr("occupy", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit", err)
	}
	committed = true

	assigned := make([]model.Seat, len(candidates))
	for i, s := range candidates {
		s.Occupied = true
		uid := userID
		s.OccupiedBy = &uid
		at := now
		s.OccupiedAt = &at
		assigned[i] = s
	}
	return assigned, nil
}

// Cancel releases a single seat booked by userID.  The seat row is
// locked first, then ownership is verified, then the occupancy fields
// are cleared; a compare-and-clear under lock, no selection involved.
//
// Returns ErrSeatNotFound when the seat does not exist or is not
// occupied, ErrNotSeatOwner when it is held by someone else.
func (e *Engine) Cancel(ctx context.Context, seatID, userID uint64) (*model.Seat, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	seat, err := e.seats.GetForUpdateTx(ctx, tx, seatID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, storageErr("lock seat", err)
	}
	if !seat.Occupied || seat.OccupiedBy == nil {
		return nil, ErrSeatNotFound
	}
	if *seat.OccupiedBy != userID {
		return nil, ErrNotSeatOwner
	}

	if err := e.seats.ReleaseTx(ctx, tx, seatID); err != nil {
		return nil, storageErr("release", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit", err)
	}
	committed = true

	seat.Occupied = false
	seat.OccupiedBy = nil
	seat.OccupiedAt = nil
	return seat, nil
}

// ResetAll clears occupancy on every seat in one transaction.  Intended
// for administrative and test flows; idempotent.
func (e *Engine) ResetAll(ctx context.Context) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := e.seats.ReleaseAllTx(ctx, tx); err != nil {
		return storageErr("release all", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	committed = true
	return nil
}
