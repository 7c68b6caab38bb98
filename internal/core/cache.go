package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hydrosim/internal/domain/model"
)

// CacheRepository defines the interface for caching operations.
// The core defines the interface and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes keys from the cache and returns how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// ResultCacheConfig holds configuration for result caching.
type ResultCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// DefaultResultCacheConfig returns a ResultCacheConfig with sensible defaults.
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		TTL: 30 * time.Minute,
	}
}

// ResultCacheOptions bundles dependencies for NewResultCache.
type ResultCacheOptions struct {
	Cache  CacheRepository
	Config ResultCacheConfig
	Logger *slog.Logger
}

// ResultCache is a read-through cache of result sets keyed by simulation and type.
// A nil *ResultCache or one without a backing repository is a no-op.
// Cache failures are logged and never surface to callers.
type ResultCache struct {
	cache  CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewResultCache creates a new ResultCache.
func NewResultCache(opts ResultCacheOptions) *ResultCache {
	ttl := opts.Config.TTL
	if ttl <= 0 {
		ttl = DefaultResultCacheConfig().TTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{cache: opts.Cache, ttl: ttl, logger: logger.With("component", "result_cache")}
}

func (c *ResultCache) enabled() bool {
	return c != nil && c.cache != nil
}

// Get returns cached result sets. The bool is false on a miss.
func (c *ResultCache) Get(ctx context.Context, simulationID string, rt model.ResultType) ([]*model.ResultSet, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, resultKey(simulationID, rt))
	if err != nil {
		c.logger.WarnContext(ctx, "result cache get failed", "simulation_id", simulationID, "error", err)
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	var sets []*model.ResultSet
	if err := json.Unmarshal(raw, &sets); err != nil {
		c.logger.WarnContext(ctx, "result cache entry corrupt", "simulation_id", simulationID, "error", err)
		return nil, false
	}
	return sets, true
}

// Put stores result sets for later reads.
func (c *ResultCache) Put(ctx context.Context, simulationID string, rt model.ResultType, sets []*model.ResultSet) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(sets)
	if err != nil {
		c.logger.WarnContext(ctx, "result cache encode failed", "simulation_id", simulationID, "error", err)
		return
	}
	if err := c.cache.Set(ctx, resultKey(simulationID, rt), raw, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "result cache set failed", "simulation_id", simulationID, "error", err)
	}
}

// Invalidate drops every cached view of a simulation.
func (c *ResultCache) Invalidate(ctx context.Context, simulationID string) {
	if !c.enabled() {
		return
	}
	keys := []string{resultKey(simulationID, "")}
	for _, rt := range model.ResultTypes() {
		keys = append(keys, resultKey(simulationID, rt))
	}
	if _, err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "result cache invalidate failed", "simulation_id", simulationID, "error", err)
	}
}

// resultKey generates a cache key; an empty type addresses the "all results" view.
func resultKey(simulationID string, rt model.ResultType) string {
	if rt == "" {
		rt = "all"
	}
	return fmt.Sprintf("hydrosim:results:%s:%s", simulationID, rt)
}
