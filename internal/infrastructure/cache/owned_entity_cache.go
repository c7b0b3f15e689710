package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultOwnedEntityTTL      = 5 * time.Minute
	defaultOwnedEntityRedisTTL = 15 * time.Minute
	defaultCleanupInterval     = 30 * time.Second

	redisOwnedEntityPrefix = "billing:entity:"
)

// cacheEntry wraps a cached tenant id with expiration time
type cacheEntry struct {
	tenantID  uuid.UUID
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// CachedOwnedEntityLookup decorates a billing.OwnedEntityLookup with a
// two-tier read-through cache
// L1: Local in-memory map (fast, but local to instance)
// L2: Redis (slower, but shared across instances; optional)
// Only positive resolutions are cached: a not-found answer may flip once the
// sync subsystem catches up, and caching it would starve the pending retry
// queue.
type CachedOwnedEntityLookup struct {
	inner    billing.OwnedEntityLookup
	entries  sync.Map // map[string]*cacheEntry
	ttl      time.Duration
	redis    *redis.Client
	redisTTL time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopped  int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// CachedOwnedEntityLookupOption is a functional option for configuring the cache
type CachedOwnedEntityLookupOption func(*CachedOwnedEntityLookup)

// WithOwnedEntityTTL sets the entry TTL
func WithOwnedEntityTTL(ttl time.Duration) CachedOwnedEntityLookupOption {
	return func(c *CachedOwnedEntityLookup) {
		c.ttl = ttl
	}
}

// WithOwnedEntityLogger sets the logger for the cache
func WithOwnedEntityLogger(logger *zap.Logger) CachedOwnedEntityLookupOption {
	return func(c *CachedOwnedEntityLookup) {
		c.logger = logger
	}
}

// WithOwnedEntityRedis enables the shared L2 tier on the given client
func WithOwnedEntityRedis(client *redis.Client) CachedOwnedEntityLookupOption {
	return func(c *CachedOwnedEntityLookup) {
		c.redis = client
	}
}

// WithOwnedEntityRedisTTL sets the L2 entry TTL
func WithOwnedEntityRedisTTL(ttl time.Duration) CachedOwnedEntityLookupOption {
	return func(c *CachedOwnedEntityLookup) {
		c.redisTTL = ttl
	}
}

// NewCachedOwnedEntityLookup creates a caching decorator over the given lookup
func NewCachedOwnedEntityLookup(inner billing.OwnedEntityLookup, opts ...CachedOwnedEntityLookupOption) *CachedOwnedEntityLookup {
	cache := &CachedOwnedEntityLookup{
		inner:    inner,
		ttl:      defaultOwnedEntityTTL,
		redisTTL: defaultOwnedEntityRedisTTL,
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// ShipmentTenant resolves the owning tenant of a shipment
func (c *CachedOwnedEntityLookup) ShipmentTenant(ctx context.Context, shipmentID string) (uuid.UUID, error) {
	return c.resolve(ctx, "shipment:"+shipmentID, func() (uuid.UUID, error) {
		return c.inner.ShipmentTenant(ctx, shipmentID)
	})
}

// InventoryItemTenant resolves the owning tenant of an inventory item
func (c *CachedOwnedEntityLookup) InventoryItemTenant(ctx context.Context, itemID string) (uuid.UUID, error) {
	return c.resolve(ctx, "item:"+itemID, func() (uuid.UUID, error) {
		return c.inner.InventoryItemTenant(ctx, itemID)
	})
}

// OrderTenant resolves the owning tenant of a sales order reference
func (c *CachedOwnedEntityLookup) OrderTenant(ctx context.Context, orderReference string) (uuid.UUID, error) {
	return c.resolve(ctx, "order:"+orderReference, func() (uuid.UUID, error) {
		return c.inner.OrderTenant(ctx, orderReference)
	})
}

func (c *CachedOwnedEntityLookup) resolve(ctx context.Context, key string, load func() (uuid.UUID, error)) (uuid.UUID, error) {
	if v, ok := c.entries.Load(key); ok {
		entry := v.(*cacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.tenantID, nil
		}
		c.entries.Delete(key)
	}

	if tenantID, ok := c.lookupRedis(ctx, key); ok {
		atomic.AddInt64(&c.hits, 1)
		c.entries.Store(key, &cacheEntry{
			tenantID:  tenantID,
			expiresAt: time.Now().Add(c.ttl),
		})
		return tenantID, nil
	}
	atomic.AddInt64(&c.misses, 1)

	tenantID, err := load()
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.logger.Warn("owned entity lookup failed",
				zap.String("key", key),
				zap.Error(err))
		}
		return uuid.Nil, err
	}

	c.entries.Store(key, &cacheEntry{
		tenantID:  tenantID,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.storeRedis(ctx, key, tenantID)
	return tenantID, nil
}

// lookupRedis reads the L2 tier. Redis failures degrade to a miss so a cache
// outage never blocks attribution.
func (c *CachedOwnedEntityLookup) lookupRedis(ctx context.Context, key string) (uuid.UUID, bool) {
	if c.redis == nil {
		return uuid.Nil, false
	}

	raw, err := c.redis.Get(ctx, redisOwnedEntityPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("owned entity L2 read failed",
				zap.String("key", key),
				zap.Error(err))
		}
		return uuid.Nil, false
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil {
		c.logger.Warn("owned entity L2 entry is corrupt, dropping it",
			zap.String("key", key),
			zap.Error(err))
		c.redis.Del(ctx, redisOwnedEntityPrefix+key)
		return uuid.Nil, false
	}
	return tenantID, true
}

func (c *CachedOwnedEntityLookup) storeRedis(ctx context.Context, key string, tenantID uuid.UUID) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, redisOwnedEntityPrefix+key, tenantID.String(), c.redisTTL).Err(); err != nil {
		c.logger.Debug("owned entity L2 write failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Stats returns hit and miss counters
func (c *CachedOwnedEntityLookup) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Stop terminates the background cleanup goroutine
func (c *CachedOwnedEntityLookup) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

// cleanupExpired periodically evicts expired entries
func (c *CachedOwnedEntityLookup) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*cacheEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

// Ensure CachedOwnedEntityLookup implements OwnedEntityLookup
var _ billing.OwnedEntityLookup = (*CachedOwnedEntityLookup)(nil)
