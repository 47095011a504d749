package calendar

import (
	"context"
	"log/slog"
	"time"

	"tourops-engine/internal/infra/readstore"

	"github.com/redis/go-redis/v9"
)

const dateLayout = "2006-01-02"

// CachedHolidayCalendar answers holiday lookups through a Redis read-through
// cache in front of the holidays table. Cache failures degrade to a direct
// database read; pricing never fails because the cache is down.
type CachedHolidayCalendar struct {
	store  *readstore.HolidayReadStore
	client *redis.Client
	ttl    time.Duration
}

func NewCachedHolidayCalendar(store *readstore.HolidayReadStore, client *redis.Client, ttl time.Duration) *CachedHolidayCalendar {
	return &CachedHolidayCalendar{store: store, client: client, ttl: ttl}
}

func (c *CachedHolidayCalendar) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	key := "holiday:" + date.Format(dateLayout)

	if c.client != nil {
		val, err := c.client.Get(ctx, key).Result()
		switch {
		case err == nil:
			return val == "1", nil
		case err != redis.Nil:
			slog.Warn("holiday cache read failed", "key", key, "error", err.Error())
		}
	}

	isHoliday, err := c.store.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}

	if c.client != nil {
		val := "0"
		if isHoliday {
			val = "1"
		}
		if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
			slog.Warn("holiday cache write failed", "key", key, "error", err.Error())
		}
	}
	return isHoliday, nil
}
