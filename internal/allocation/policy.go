// Package allocation implements the seat selection policy.  Select is a
// pure function over a snapshot of the ledger: it never mutates anything
// and its result is only a hint.  The booking engine locks the chosen
// seats and re-verifies them before committing, so the snapshot does not
// need to be serializable with the eventual write.
package allocation

import (
	"errors"
	"sort"

	"github.com/iliyamo/train-seat-booking/internal/model"
)

// ErrInsufficientCapacity is returned when fewer unoccupied seats exist
// than were requested.  It is not worth retrying until a cancellation
// frees seats.
var ErrInsufficientCapacity = errors.New("not enough unoccupied seats")

// Select picks count candidate seats from the snapshot using three tiers,
// evaluated in order, first success wins:
//
//  1. Consecutive-in-row: the first count seats of a run of consecutive
//     positions of length >= count, from the lowest-numbered row that has
//     one (lowest starting position when a row has several).
//  2. Best-row-plus-nearby: all free seats of the row with the most free
//     seats (tie: lowest row number), topped up from other rows ordered by
//     distance from that row, then row number, then position.
//  3. Scattered: when the tier-2 row has no free seats at all, any count
//     free seats ordered by (row, position).
//
// The returned slice preserves selection order.  When the snapshot holds
// fewer than count free seats, ErrInsufficientCapacity is returned.
func Select(count int, snapshot []model.Seat) ([]model.Seat, error) {
	if count <= 0 {
		return nil, errors.New("seat count must be positive")
	}

	byRow, rows, total := groupFree(snapshot)
	if total < count {
		return nil, ErrInsufficientCapacity
	}

	// Tier 1: lowest row with a long-enough run of consecutive positions.
	for _, row := range rows {
		if run := findRun(byRow[row], count); run != nil {
			return run[:count], nil
		}
	}

	// Tier 2: anchor on the row with the most free seats, lowest row wins ties.
	anchor := rows[0]
	for _, row := range rows[1:] {
		if len(byRow[row]) > len(byRow[anchor]) {
			anchor = row
		}
	}

	// Tier 3: the anchor row being empty means no row has anything; fall
	// back to a plain (row, position) scan.
	if len(byRow[anchor]) == 0 {
		return scattered(byRow, rows, count), nil
	}

	picked := make([]model.Seat, 0, count)
	picked = append(picked, byRow[anchor]...)
	if len(picked) >= count {
		return picked[:count], nil
	}

	// Spill over into the remaining rows, nearest to the anchor first.
	// Equidistant rows resolve to the lower row number.
	others := make([]uint32, 0, len(rows)-1)
	for _, row := range rows {
		if row != anchor {
			others = append(others, row)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		di, dj := rowDistance(others[i], anchor), rowDistance(others[j], anchor)
		if di != dj {
			return di < dj
		}
		return others[i] < others[j]
	})
	for _, row := range others {
		for _, s := range byRow[row] {
			picked = append(picked, s)
			if len(picked) == count {
				return picked, nil
			}
		}
	}
	// total >= count guarantees we never get here.
	return nil, ErrInsufficientCapacity
}

// groupFree partitions the unoccupied seats by row, each row's seats
// sorted by position, and returns the ascending row numbers alongside
// the total number of free seats.  Rows that exist in the layout but
// are fully occupied do not appear.
func groupFree(snapshot []model.Seat) (map[uint32][]model.Seat, []uint32, int) {
	byRow := make(map[uint32][]model.Seat)
	total := 0
	for _, s := range snapshot {
		if s.Occupied {
			continue
		}
		byRow[s.Row] = append(byRow[s.Row], s)
		total++
	}
	rows := make([]uint32, 0, len(byRow))
	for row := range byRow {
		sort.Slice(byRow[row], func(i, j int) bool {
			return byRow[row][i].Position < byRow[row][j].Position
		})
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
	return byRow, rows, total
}

// findRun scans a row's free seats (sorted by position) for the first
// maximal run of strictly consecutive positions of length >= count.
func findRun(seats []model.Seat, count int) []model.Seat {
	start := 0
	for i := 1; i <= len(seats); i++ {
		if i < len(seats) && seats[i].Position == seats[i-1].Position+1 {
			continue
		}
		if i-start >= count {
			return seats[start:i]
		}
		start = i
	}
	return nil
}

// scattered collects free seats in (row, position) order.  The caller
// has already verified that at least count free seats exist.
func scattered(byRow map[uint32][]model.Seat, rows []uint32, count int) []model.Seat {
	picked := make([]model.Seat, 0, count)
	for _, row := range rows {
		for _, s := range byRow[row] {
			picked = append(picked, s)
			if len(picked) == count {
				return picked
			}
		}
	}
	return picked
}

func rowDistance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
