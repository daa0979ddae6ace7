package allocation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-booking/internal/allocation"
	"github.com/iliyamo/train-seat-booking/internal/model"
)

// layout builds a coach of rows x perRow seats with ascending IDs.
// occupiedIDs marks seats as taken.
func layout(rows, perRow int, occupiedIDs ...uint64) []model.Seat {
	taken := make(map[uint64]bool, len(occupiedIDs))
	for _, id := range occupiedIDs {
		taken[id] = true
	}
	var seats []model.Seat
	id := uint64(1)
	for r := 1; r <= rows; r++ {
		for p := 1; p <= perRow; p++ {
			seats = append(seats, model.Seat{
				ID:       id,
				Row:      uint32(r),
				Position: uint32(p),
				Occupied: taken[id],
			})
			id++
		}
	}
	return seats
}

func ids(seats []model.Seat) []uint64 {
	out := make([]uint64, len(seats))
	for i, s := range seats {
		out[i] = s.ID
	}
	return out
}

func TestSelect_PicksConsecutiveRunInLowestRow(t *testing.T) {
	// Row 1 has a run of 2 (positions 2-3), rows 2 and 3 are fully free.
	// A request for 3 must skip row 1 and land on row 2.
	seats := layout(3, 4, 1, 4) // row 1: positions 1 and 4 taken

	got, err := allocation.Select(3, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6, 7}, ids(got))
	for _, s := range got {
		assert.Equal(t, uint32(2), s.Row)
	}
}

func TestSelect_TakesPrefixOfLongerRun(t *testing.T) {
	seats := layout(2, 5)

	got, err := allocation.Select(2, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids(got))
	assert.Equal(t, uint32(1), got[0].Position)
	assert.Equal(t, uint32(2), got[1].Position)
}

func TestSelect_LowestStartingPositionWhenRowHasTwoRuns(t *testing.T) {
	// Row 1: free at 1-2 and 4-5, position 3 taken.  Both runs fit a
	// request for 2; the earlier one wins.
	seats := layout(1, 5, 3)

	got, err := allocation.Select(2, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids(got))
}

func TestSelect_BestRowAnchorWithSpillover(t *testing.T) {
	// No row has 4 consecutive free seats.  Row 2 has the most free
	// seats (3: positions 1, 3, 5), so it anchors; the remaining seat
	// spills into the nearest row with a free seat.
	//   row 1: only position 2 free
	//   row 2: positions 1, 3, 5 free
	//   row 3: only position 4 free
	seats := layout(3, 5,
		1, 3, 4, 5, // row 1
		7, 9, // row 2
		11, 12, 13, 15, // row 3
	)

	got, err := allocation.Select(4, seats)
	require.NoError(t, err)
	// Anchor row seats first in position order, then the equidistant
	// spillover resolves to the lower row (row 1).
	assert.Equal(t, []uint64{6, 8, 10, 2}, ids(got))
}

func TestSelect_AnchorTieGoesToLowerRow(t *testing.T) {
	// Rows 1 and 3 both have two free seats, row 2 has one.  Row 1 must
	// anchor the selection.
	seats := layout(3, 3,
		2,    // row 1: free at 1, 3
		4, 5, // row 2: free at 3
		8,    // row 3: free at 1, 3
	)

	got, err := allocation.Select(2, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids(got))
}

func TestSelect_SpilloverPrefersNearerRow(t *testing.T) {
	// Row 1 anchors with two free seats; one more is needed.  Row 2 is
	// closer than row 4, so its seat is taken even though row 4 also has
	// a free seat.
	seats := layout(4, 3,
		3,       // row 1: free at 1, 2
		4, 5,    // row 2: free at 3
		7, 8, 9, // row 3: full
		10, 11,  // row 4: free at 3
	)

	got, err := allocation.Select(3, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 6}, ids(got))
}

func TestSelect_FragmentedLayoutScattersInRowOrder(t *testing.T) {
	// One free seat per row, nothing consecutive anywhere.  The result
	// walks rows in ascending order.
	seats := layout(4, 2, 2, 3, 6, 7)

	got, err := allocation.Select(3, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 4, 5}, ids(got))
}

func TestSelect_InsufficientCapacity(t *testing.T) {
	seats := layout(2, 2, 1, 2, 3)

	got, err := allocation.Select(2, seats)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, allocation.ErrInsufficientCapacity)
}

func TestSelect_RejectsNonPositiveCount(t *testing.T) {
	seats := layout(1, 2)

	_, err := allocation.Select(0, seats)
	assert.Error(t, err)

	_, err = allocation.Select(-1, seats)
	assert.Error(t, err)
}

func TestSelect_SmallCoachScenario(t *testing.T) {
	// Two rows of three seats.  Booking the coach down step by step.
	seats := layout(2, 3)

	first, err := allocation.Select(3, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, ids(first))

	// Row 1 is now gone; the next pair comes from the start of row 2.
	seats = layout(2, 3, 1, 2, 3)
	second, err := allocation.Select(2, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, ids(second))

	// A single free seat remains; asking for two must fail.
	seats = layout(2, 3, 1, 2, 3, 4, 5)
	_, err = allocation.Select(2, seats)
	assert.ErrorIs(t, err, allocation.ErrInsufficientCapacity)

	one, err := allocation.Select(1, seats)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6}, ids(one))
}

func TestSelect_DoesNotMutateSnapshot(t *testing.T) {
	seats := layout(2, 3, 2)
	before := make([]model.Seat, len(seats))
	copy(before, seats)

	_, err := allocation.Select(3, seats)
	require.NoError(t, err)
	assert.Equal(t, before, seats)
}
