package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ticketing:availability:"

// AvailabilityCache keeps the availability view of an event in redis. It is a
// read optimisation only; purchases never consult it.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func key(eventID string) string {
	return keyPrefix + eventID
}

// Get returns false when the entry is missing or expired.
func (c *AvailabilityCache) Get(ctx context.Context, eventID string) (*models.Availability, bool, error) {
	raw, err := c.client.Get(ctx, key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var a models.Availability
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, false, fmt.Errorf("decode availability: %w", err)
	}
	return &a, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, a models.Availability) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	if err := c.client.Set(ctx, key(a.EventID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, key(eventID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
