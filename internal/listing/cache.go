// Package listing caches the public post listing under a single key.
//
// The cache is advisory: every store failure degrades to a miss so a slow
// or unavailable cache never fails a request.
package listing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/cache"
	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

var lookupsTotal = telemetry.NewCounter("blogmind_listing_cache_total", "Listing cache lookups by result")

// Snapshot is the cached listing, newest post first
type Snapshot []models.PostSummary

// Store is the key-value backend of the listing cache
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache holds the listing snapshot
type Cache struct {
	store     Store
	key       string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *zap.Logger
}

// New creates a listing cache over store
func New(store Store, cfg *config.CacheConfig) *Cache {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Cache{
		store:     store,
		key:       cfg.ListingKey,
		ttl:       cfg.ListingTTL,
		opTimeout: opTimeout,
		logger:    logging.WithComponent("listing-cache"),
	}
}

// Get returns the cached snapshot. The second result is false on a miss,
// which includes every store failure.
func (c *Cache) Get(ctx context.Context) (Snapshot, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	var snap Snapshot
	err := c.store.GetJSON(ctx, c.key, &snap)
	switch {
	case err == nil:
		lookupsTotal.Inc(ctx, "hit")
		return snap, true
	case errors.Is(err, cache.ErrCacheMiss):
		lookupsTotal.Inc(ctx, "miss")
	default:
		lookupsTotal.Inc(ctx, "degraded")
		c.degraded("get", err)
	}
	return nil, false
}

// Set stores snap under the listing key with the configured TTL
func (c *Cache) Set(ctx context.Context, snap Snapshot) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if snap == nil {
		snap = Snapshot{}
	}
	if err := c.store.SetJSON(ctx, c.key, snap, c.ttl); err != nil {
		c.degraded("set", err)
	}
}

// Invalidate drops the snapshot so the next Get misses
func (c *Cache) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.store.Delete(ctx, c.key); err != nil {
		c.degraded("invalidate", err)
	}
}

func (c *Cache) degraded(op string, err error) {
	if errors.Is(err, cache.ErrCacheDisabled) {
		return
	}
	c.logger.Warn("Listing cache degraded",
		zap.String("op", op),
		zap.String("kind", string(errs.KindCacheDegraded)),
		zap.Error(err))
}
