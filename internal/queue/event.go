// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatsBookedEvent is published after a booking commits.  It carries
// enough for downstream consumers to log or notify without querying the
// ledger.  Seat labels are "row-position" strings.
type SeatsBookedEvent struct {
	UserID     uint64   `json:"user_id"`
	SeatCount  int      `json:"seat_count"`
	SeatLabels []string `json:"seats"`
	BookedAt   string   `json:"booked_at"`
}
