package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/appflows/booking-flow/internal/schedule"
)

// DayCache keeps computed day grids in Redis for a short TTL so repeated
// availability lookups do not hit Postgres. Bookings invalidate the day
// they land on.
type DayCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDayCache(client *redis.Client, ttl time.Duration) *DayCache {
	return &DayCache{
		client: client,
		ttl:    ttl,
	}
}

func dayKey(providerID uuid.UUID, year, month, day int) string {
	return fmt.Sprintf("avail:%s:%04d-%02d-%02d", providerID.String(), year, month, day)
}

// Get returns the cached grid for the day, or ok=false on a miss.
func (c *DayCache) Get(ctx context.Context, providerID uuid.UUID, year, month, day int) ([]schedule.Slot, bool, error) {
	raw, err := c.client.Get(ctx, dayKey(providerID, year, month, day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get day grid: %w", err)
	}

	var grid []schedule.Slot
	if err := json.Unmarshal(raw, &grid); err != nil {
		// A corrupt entry behaves like a miss and gets overwritten.
		return nil, false, nil
	}

	return grid, true, nil
}

func (c *DayCache) Set(ctx context.Context, providerID uuid.UUID, year, month, day int, grid []schedule.Slot) error {
	raw, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("marshal day grid: %w", err)
	}

	if err := c.client.Set(ctx, dayKey(providerID, year, month, day), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set day grid: %w", err)
	}

	return nil
}

func (c *DayCache) Invalidate(ctx context.Context, providerID uuid.UUID, year, month, day int) error {
	if err := c.client.Del(ctx, dayKey(providerID, year, month, day)).Err(); err != nil {
		return fmt.Errorf("invalidate day grid: %w", err)
	}
	return nil
}
