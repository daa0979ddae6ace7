package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
)

// occupancyCacheTTL bounds staleness when an invalidation is missed.
const occupancyCacheTTL = 30 * time.Second

// OccupancyHandler serves the read-only seat map.  Reads take no locks
// and reflect the latest committed state; a short-lived redis snapshot
// absorbs the read traffic between mutations.
type OccupancyHandler struct {
	Seats *repository.SeatRepo
	Redis *redis.Client // nil disables caching
}

func NewOccupancyHandler(seats *repository.SeatRepo, rdb *redis.Client) *OccupancyHandler {
	if seats == nil {
		panic("nil repository passed to NewOccupancyHandler")
	}
	return &OccupancyHandler{Seats: seats, Redis: rdb}
}

type occupancyItem struct {
	ID         uint64     `json:"id"`
	Row        uint32     `json:"row"`
	Position   uint32     `json:"position"`
	Occupied   bool       `json:"occupied"`
	OccupiedBy *uint64    `json:"occupied_by,omitempty"`
	OccupiedAt *time.Time `json:"occupied_at,omitempty"`
}

type occupancyResp struct {
	Count int             `json:"count"`
	Items []occupancyItem `json:"items"`
}

// List handles GET /v1/seats.  Public; used to render availability.
func (h *OccupancyHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, occupancyCacheKey).Bytes(); err == nil {
			var resp occupancyResp
			if json.Unmarshal(cached, &resp) == nil {
				return c.JSON(http.StatusOK, resp)
			}
		}
	}

	seats, err := h.Seats.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	resp := occupancyResp{Count: len(seats), Items: toItems(seats)}

	if h.Redis != nil {
		if body, err := json.Marshal(resp); err == nil {
			_ = h.Redis.Set(ctx, occupancyCacheKey, body, occupancyCacheTTL).Err()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func toItems(seats []model.Seat) []occupancyItem {
	items := make([]occupancyItem, len(seats))
	for i, s := range seats {
		items[i] = occupancyItem{
			ID:         s.ID,
			Row:        s.Row,
			Position:   s.Position,
			Occupied:   s.Occupied,
			OccupiedBy: s.OccupiedBy,
			OccupiedAt: s.OccupiedAt,
		}
	}
	return items
}
