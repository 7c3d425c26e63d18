package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedSnapshot is a read-through Redis cache in front of another
// Snapshot. Availability is advisory and re-validated at checkout, so a
// short TTL of staleness is acceptable for cart-building reads.
type CachedSnapshot struct {
	next   Snapshot
	client *redis.Client
	ttl    time.Duration
}

func NewCached(next Snapshot, client *redis.Client, ttl time.Duration) *CachedSnapshot {
	return &CachedSnapshot{next: next, client: client, ttl: ttl}
}

func (c *CachedSnapshot) Available(ctx context.Context, productID string) (Availability, error) {
	key := cacheKey(productID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var av Availability
		if err := json.Unmarshal(data, &av); err == nil {
			return av, nil
		}
		// Corrupt entry: fall through to the source and overwrite.
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("product_id", productID).Msg("inventory cache: redis get failed")
	}

	av, err := c.next.Available(ctx, productID)
	if err != nil {
		return Availability{}, err
	}

	payload, err := json.Marshal(av)
	if err != nil {
		return av, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("inventory cache: redis set failed")
	}
	return av, nil
}

// Invalidate drops the cached entry for productID. Callers use it after a
// stock re-validation failure so the next read hits the source.
func (c *CachedSnapshot) Invalidate(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, cacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(productID string) string {
	return fmt.Sprintf("inventory:%s", productID)
}
