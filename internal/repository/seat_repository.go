package repository // repository defines data access for the seat ledger

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions
	"strings"      // strings builds IN (...) placeholder lists
	"time"         // time stamps occupancy changes

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides methods to work with the seats table.  Plain methods
// run against the pool; the ...Tx variants run inside a caller-owned
// transaction so the booking engine can combine snapshot reads, row
// locks and updates atomically.  The caller commits or rolls back.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// DB exposes the underlying handle so callers can begin transactions.
func (r *SeatRepo) DB() *sql.DB { return r.db }

const seatColumns = `id, row_no, seat_no, occupied, occupied_by, occupied_at`

// scanSeat reads one seat row from any scanner (sql.Row or sql.Rows).
func scanSeat(scan func(dest ...interface{}) error) (model.Seat, error) {
	var (
		s          model.Seat
		occupiedBy sql.NullInt64
		occupiedAt sql.NullTime
	)
	if err := scan(&s.ID, &s.Row, &s.Position, &s.Occupied, &occupiedBy, &occupiedAt); err != nil {
		return model.Seat{}, err
	}
	if occupiedBy.Valid {
		uid := uint64(occupiedBy.Int64)
		s.OccupiedBy = &uid
	}
	if occupiedAt.Valid {
		t := occupiedAt.Time
		s.OccupiedAt = &t
	}
	return s, nil
}

// ListAll returns every seat with its occupancy, ordered by row then
// position.  It reads the latest committed state without locking and is
// used both for the public occupancy view and as the advisory snapshot
// the selection policy works from.
func (r *SeatRepo) ListAll(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats ORDER BY row_no, seat_no`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeats(rows)
}

// ListAllTx is ListAll inside an existing transaction.
func (r *SeatRepo) ListAllTx(ctx context.Context, tx *sql.Tx) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats ORDER BY row_no, seat_no`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeats(rows)
}

func collectSeats(rows *sql.Rows) ([]model.Seat, error) {
	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LockStatusTx takes exclusive row locks on exactly the given seat IDs
// and returns their current occupied flags.  The IDs should be sorted
// ascending by the caller so concurrent bookings acquire locks in the
// same order.  Blocks until competing locks on the same rows are
// released.
func (r *SeatRepo) LockStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]bool, error) {
	if len(ids) == 0 {
		return map[uint64]bool{}, nil
	}
	q := `SELECT id, occupied FROM seats WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	status := make(map[uint64]bool, len(ids))
	for rows.Next() {
		var (
			id       uint64
			occupied bool
		)
		if err := rows.Scan(&id, &occupied); err != nil {
			return nil, err
		}
		status[id] = occupied
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return status, nil
}

// OccupyTx marks the given seats as held by userID at the supplied
// timestamp.  Callers must have locked the rows first via LockStatusTx.
func (r *SeatRepo) OccupyTx(ctx context.Context, tx *sql.Tx, ids []uint64, userID uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE seats SET occupied = 1, occupied_by = ?, occupied_at = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, userID, at.UTC().Format("2006-01-02 15:04:05"))
	args = append(args, idArgs(ids)...)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != int64(len(ids)) {
		return errors.New("occupied fewer seats than requested")
	}
	return nil
}

// GetForUpdateTx loads a single seat under an exclusive row lock.
// Returns ErrSeatNotFound when the ID does not exist.
func (r *SeatRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ? FOR UPDATE`
	s, err := scanSeat(tx.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ReleaseTx clears the occupancy fields of a single seat.  Callers must
// hold the row lock via GetForUpdateTx.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE seats SET occupied = 0, occupied_by = NULL, occupied_at = NULL WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

// ReleaseAllTx clears occupancy on every held seat.  The transaction's
// own isolation is enough here; no per-seat locking is required, and
// running it twice is a no-op the second time.
func (r *SeatRepo) ReleaseAllTx(ctx context.Context, tx *sql.Tx) error {
	const q = `UPDATE seats SET occupied = 0, occupied_by = NULL, occupied_at = NULL WHERE occupied = 1`
	_, err := tx.ExecContext(ctx, q)
	return err
}

// Count returns the number of seats in the layout.
func (r *SeatRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats`).Scan(&n)
	return n, err
}

// CreateBulk inserts multiple seats in a single statement.  Used only by
// the one-time layout bootstrap.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (row_no, seat_no) VALUES `
	args := make([]interface{}, 0, len(seats)*2)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, s.Row, s.Position)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// EnsureLayout creates the fixed coach layout when the seats table is
// empty: full rows of rowSize seats, with the remainder forming a short
// trailing row.  Safe to call on every startup.
func (r *SeatRepo) EnsureLayout(ctx context.Context, totalSeats, rowSize int) error {
	n, err := r.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	seats := make([]model.Seat, 0, totalSeats)
	for i := 0; i < totalSeats; i++ {
		seats = append(seats, model.Seat{
			Row:      uint32(i/rowSize) + 1,
			Position: uint32(i%rowSize) + 1,
		})
	}
	return r.CreateBulk(ctx, seats)
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func idArgs(ids []uint64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
