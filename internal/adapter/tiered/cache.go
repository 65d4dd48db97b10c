// Package tiered layers a local cache over a shared one. The classification
// service uses it when NATS KV is available: ristretto absorbs the hot
// lookups in-process while the KV bucket lets instances share resolutions.
package tiered

import (
	"context"
	"time"

	"github.com/taskdesk/taskdesk/internal/port/cache"
)

// Cache reads local first, then shared, backfilling the local tier on a
// shared hit. Writes and deletes go to both tiers.
type Cache struct {
	local       cache.Cache
	shared      cache.Cache
	backfillTTL time.Duration
}

// New creates a tiered cache. backfillTTL bounds how long a shared-tier hit
// lives locally before the shared tier is consulted again.
func New(local, shared cache.Cache, backfillTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, backfillTTL: backfillTTL}
}

func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.local.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.shared.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		// Backfill failures only cost the next lookup a shared-tier
		// round trip.
		_ = c.local.Set(ctx, key, val, c.backfillTTL)
		return val, true, nil
	}
	return nil, false, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.shared.Set(ctx, key, value, ttl)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	return c.shared.Delete(ctx, key)
}
