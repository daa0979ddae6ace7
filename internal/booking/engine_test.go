package booking_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-booking/internal/booking"
	"github.com/iliyamo/train-seat-booking/internal/repository"
)

// Query fragments matched against the engine's SQL.  sqlmock treats the
// expectation string as a regular expression, so the fragments stop
// short of placeholders and parentheses.
const (
	qSnapshot   = `SELECT id, row_no, seat_no, occupied, occupied_by, occupied_at FROM seats ORDER BY row_no, seat_no`
	qLock       = `SELECT id, occupied FROM seats WHERE id IN`
	qOccupy     = `UPDATE seats SET occupied = 1, occupied_by = `
	qGetSeat    = `SELECT id, row_no, seat_no, occupied, occupied_by, occupied_at FROM seats WHERE id = `
	qRelease    = `UPDATE seats SET occupied = 0, occupied_by = NULL, occupied_at = NULL WHERE id = `
	qReleaseAll = `UPDATE seats SET occupied = 0, occupied_by = NULL, occupied_at = NULL WHERE occupied = 1`
)

var seatCols = []string{"id", "row_no", "seat_no", "occupied", "occupied_by", "occupied_at"}

func newEngine(t *testing.T) (*booking.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return booking.NewEngine(db, repository.NewSeatRepo(db)), mock
}

// snapshotRows builds a 2x3 coach where the listed IDs are occupied by
// user 99.
func snapshotRows(occupiedIDs ...uint64) *sqlmock.Rows {
	taken := make(map[uint64]bool, len(occupiedIDs))
	for _, id := range occupiedIDs {
		taken[id] = true
	}
	rows := sqlmock.NewRows(seatCols)
	id := uint64(1)
	for r := 1; r <= 2; r++ {
		for p := 1; p <= 3; p++ {
			if taken[id] {
				rows.AddRow(id, r, p, true, int64(99), time.Now())
			} else {
				rows.AddRow(id, r, p, false, nil, nil)
			}
			id++
		}
	}
	return rows
}

func TestBookSeats_CommitsHappyPath(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qSnapshot).WillReturnRows(snapshotRows())
	mock.ExpectQuery(qLock).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occupied"}).
			AddRow(1, false).
			AddRow(2, false))
	mock.ExpectExec(qOccupy).
		WithArgs(int64(7), sqlmock.AnyArg(), int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	seats, err := engine.BookSeats(context.Background(), 2, 7)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, uint64(1), seats[0].ID)
	assert.Equal(t, uint64(2), seats[1].ID)
	for _, s := range seats {
		assert.True(t, s.Occupied)
		if assert.NotNil(t, s.OccupiedBy) {
			assert.Equal(t, uint64(7), *s.OccupiedBy)
		}
		assert.NotNil(t, s.OccupiedAt)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSeats_ConflictRollsBack(t *testing.T) {
	engine, mock := newEngine(t)

	// The snapshot still shows seats 1 and 2 free, but by the time the
	// locks are taken another booking has claimed seat 2.
	mock.ExpectBegin()
	mock.ExpectQuery(qSnapshot).WillReturnRows(snapshotRows())
	mock.ExpectQuery(qLock).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occupied"}).
			AddRow(1, false).
			AddRow(2, true))
	mock.ExpectRollback()

	seats, err := engine.BookSeats(context.Background(), 2, 7)
	assert.Nil(t, seats)
	assert.ErrorIs(t, err, booking.ErrConcurrentConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSeats_InsufficientCapacityTakesNoLocks(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qSnapshot).WillReturnRows(snapshotRows(1, 2, 3, 4, 5))
	mock.ExpectRollback()

	seats, err := engine.BookSeats(context.Background(), 2, 7)
	assert.Nil(t, seats)
	assert.ErrorIs(t, err, booking.ErrInsufficientCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSeats_CandidateDisappearedIsStorageError(t *testing.T) {
	engine, mock := newEngine(t)

	// The lock query returning fewer rows than requested means a
	// candidate ID vanished between snapshot and lock.
	mock.ExpectBegin()
	mock.ExpectQuery(qSnapshot).WillReturnRows(snapshotRows())
	mock.ExpectQuery(qLock).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occupied"}).
			AddRow(1, false))
	mock.ExpectRollback()

	_, err := engine.BookSeats(context.Background(), 2, 7)
	require.Error(t, err)
	var se *booking.StorageError
	assert.ErrorAs(t, err, &se)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_ReleasesOwnSeat(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qGetSeat).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(4, 2, 1, true, int64(7), time.Now()))
	mock.ExpectExec(qRelease).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	seat, err := engine.Cancel(context.Background(), 4, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seat.ID)
	assert.False(t, seat.Occupied)
	assert.Nil(t, seat.OccupiedBy)
	assert.Nil(t, seat.OccupiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_RejectsForeignSeat(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qGetSeat).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(4, 2, 1, true, int64(99), time.Now()))
	mock.ExpectRollback()

	seat, err := engine.Cancel(context.Background(), 4, 7)
	assert.Nil(t, seat)
	assert.ErrorIs(t, err, booking.ErrNotSeatOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_UnknownSeat(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qGetSeat).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	seat, err := engine.Cancel(context.Background(), 42, 7)
	assert.Nil(t, seat)
	assert.ErrorIs(t, err, booking.ErrSeatNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_UnoccupiedSeat(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qGetSeat).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(seatCols).
			AddRow(4, 2, 1, false, nil, nil))
	mock.ExpectRollback()

	seat, err := engine.Cancel(context.Background(), 4, 7)
	assert.Nil(t, seat)
	assert.ErrorIs(t, err, booking.ErrSeatNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAll_ClearsEverything(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(qReleaseAll).
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectCommit()

	assert.NoError(t, engine.ResetAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAll_IdempotentOnEmptyCoach(t *testing.T) {
	engine, mock := newEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec(qReleaseAll).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, engine.ResetAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
