package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-booking/internal/booking"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/queue"
	queuepublisher "github.com/iliyamo/train-seat-booking/internal/service"
)

// occupancyCacheKey is the redis key holding the rendered occupancy
// snapshot.  Every committing mutation deletes it so readers never see
// seats that are no longer free.
const occupancyCacheKey = "seats:occupancy"

// BookingHandler exposes the booking engine over HTTP.  MaxSeats bounds
// seat_count at the boundary (1..largest row); the engine itself never
// sees an out-of-range count.
type BookingHandler struct {
	Engine   *booking.Engine
	Redis    *redis.Client // nil disables cache invalidation
	MaxSeats int
}

// NewBookingHandler constructs a BookingHandler.  The redis client may
// be nil; the occupancy cache then simply stays off.
func NewBookingHandler(engine *booking.Engine, rdb *redis.Client, maxSeats int) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Redis: rdb, MaxSeats: maxSeats}
}

type bookReq struct {
	SeatCount int `json:"seat_count"`
}

type seatPart struct {
	ID       uint64 `json:"id"`
	Row      uint32 `json:"row"`
	Position uint32 `json:"position"`
}

// BookSeats handles POST /v1/seats/book.  On success it returns the
// assigned seats in selection order plus the rows they came from.  A
// concurrent conflict returns 409 with retryable=true: the client should
// simply repeat the call, selection is recomputed from scratch.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.SeatCount < 1 || req.SeatCount > h.MaxSeats {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "seat_count must be between 1 and " + strconv.Itoa(h.MaxSeats),
		})
	}

	seats, err := h.Engine.BookSeats(c.Request().Context(), req.SeatCount, userID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInsufficientCapacity):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats available"})
		case errors.Is(err, booking.ErrConcurrentConflict):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     "seats were taken concurrently, please retry",
				"retryable": true,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}

	h.invalidateOccupancy(c.Request().Context())
	publishBooked(userID, seats)

	parts := make([]seatPart, len(seats))
	rows := make([]uint32, 0, 2)
	seen := make(map[uint32]bool)
	for i, s := range seats {
		parts[i] = seatPart{ID: s.ID, Row: s.Row, Position: s.Position}
		if !seen[s.Row] {
			seen[s.Row] = true
			rows = append(rows, s.Row)
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"seats": parts,
		"rows":  rows,
	})
}

// Cancel handles DELETE /v1/seats/:id.  Only the user who booked the
// seat may release it.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}

	seat, err := h.Engine.Cancel(c.Request().Context(), seatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found or not occupied"})
		case errors.Is(err, booking.ErrNotSeatOwner):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "seat belongs to another user"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
		}
	}

	h.invalidateOccupancy(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{
		"seat_id":  seat.ID,
		"row":      seat.Row,
		"position": seat.Position,
	})
}

// Reset handles POST /v1/seats/reset.  Admin-only (enforced by route
// middleware); clears all occupancy and is safe to call repeatedly.
func (h *BookingHandler) Reset(c echo.Context) error {
	if err := h.Engine.ResetAll(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	h.invalidateOccupancy(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{})
}

// invalidateOccupancy drops the cached occupancy snapshot after a
// committed mutation.  Failures only mean a stale read until the TTL
// expires, so they are ignored.
func (h *BookingHandler) invalidateOccupancy(ctx context.Context) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, occupancyCacheKey).Err()
}

// publishBooked emits the seats.booked event after a successful commit.
// Publishing is best-effort: the booking is already durable and the
// publisher logs its own failures.  A background context is used because
// the request context ends with the response.
func publishBooked(userID uint64, seats []model.Seat) {
	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = strconv.FormatUint(uint64(s.Row), 10) + "-" + strconv.FormatUint(uint64(s.Position), 10)
	}
	ev := queue.SeatsBookedEvent{
		UserID:     userID,
		SeatCount:  len(seats),
		SeatLabels: labels,
		BookedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queuepublisher.PublishSeatsBooked(ctx, ev)
	}()
}
