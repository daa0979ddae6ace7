package model

import "time"

// Seat is one bookable unit of the coach ledger.  A seat is identified
// by its (Row, Position) pair, which is unique across the layout.  The
// occupancy fields are the sole source of truth for who holds a seat:
// OccupiedBy and OccupiedAt are both nil exactly when Occupied is false.
//
// Seats are created once at startup and never added or removed at
// runtime.  Occupancy is mutated only by the booking engine (on commit)
// and the cancellation/reset paths (on release).
//
// Fields:
//  ID         – primary key identifier.
//  Row        – 1-based row number within the coach.
//  Position   – 1-based position of the seat within its row.
//  Occupied   – whether the seat is currently held.
//  OccupiedBy – user holding the seat (nil when free).
//  OccupiedAt – when the seat was booked (nil when free).
type Seat struct {
	ID         uint64     // seats.id
	Row        uint32     // seats.row_no
	Position   uint32     // seats.seat_no
	Occupied   bool       // seats.occupied
	OccupiedBy *uint64    // seats.occupied_by (nullable)
	OccupiedAt *time.Time // seats.occupied_at (nullable)
}
