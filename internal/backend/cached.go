package backend

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/cache"
	"skillswap/internal/wizard"
)

// CachedAvailability caches weekly availability in front of another fetcher.
// Slots are always fetched live since every booking changes them.
type CachedAvailability struct {
	next  wizard.AvailabilityFetcher
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedAvailability(next wizard.AvailabilityFetcher, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedAvailability {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedAvailability{next: next, cache: c, ttl: ttl, log: log}
}

func (c *CachedAvailability) WeeklyAvailability(ctx context.Context, teacherID string) ([]wizard.DayAvailability, error) {
	key := cache.WeeklyAvailabilityKey(teacherID)

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var days []wizard.DayAvailability
		if err := json.Unmarshal(raw, &days); err == nil {
			return days, nil
		}
		c.log.Warn("availability cache entry corrupt", zap.String("key", key))
	}

	days, err := c.next.WeeklyAvailability(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	// empty answers are not cached so a teacher who just set a schedule shows up at once
	if len(days) > 0 {
		if raw, err := json.Marshal(days); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
				c.log.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return days, nil
}

func (c *CachedAvailability) AvailableSlots(ctx context.Context, teacherID string, date time.Time, durationMinutes int) ([]wizard.TimeSlot, error) {
	return c.next.AvailableSlots(ctx, teacherID, date, durationMinutes)
}
