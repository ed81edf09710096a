package l1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"unidata-cache/internal/config"
	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/metrics"
	"unidata-cache/internal/models"
	"unidata-cache/internal/scheduler"
)

const metricsInterval = 30 * time.Second

// Ensure BigCache implements interfaces.Cache
var _ interfaces.Cache = (*BigCache)(nil)

// BigCache implements the in-process L1 level using BigCache.
// Entries are stored in a JSON envelope carrying their own expiry.
type BigCache struct {
	cache            *bigcache.BigCache
	logger           *zap.Logger
	now              func() time.Time
	metricsScheduler *scheduler.Scheduler
}

// Option customizes a BigCache
type Option func(*BigCache)

// WithClock replaces the clock used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(bc *BigCache) {
		bc.now = now
	}
}

// NewBigCache creates a new BigCache instance. lifeWindow bounds how long BigCache
// keeps any entry and should be at least the longest TTL written.
func NewBigCache(l1Cfg *config.L1Config, lifeWindow time.Duration, logger *zap.Logger, opts ...Option) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	// fewer, larger shards so a whole country list fits in one shard
	cfg.Shards = 64
	cfg.HardMaxCacheSize = l1Cfg.Size // Size in MB
	cfg.Verbose = false
	cfg.MaxEntrySize = 1024 * 1024 // 1MB max entry size

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigcache: %w", err)
	}

	bc := &BigCache{
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(bc)
	}

	// Start periodic metrics collection
	bc.startMetricsCollection()

	return bc, nil
}

// Get retrieves a live entry from cache
func (bc *BigCache) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	data, err := bc.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheError("l1", "get")
		return nil, false, fmt.Errorf("l1 get %q: %w", key, err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal L1 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "decode")
		_ = bc.cache.Delete(key) // Remove corrupted envelope
		return nil, false, nil
	}

	if entry.IsExpiredAt(bc.now()) {
		_ = bc.cache.Delete(key)
		return nil, false, nil
	}

	return &entry, true, nil
}

// Set stores value in cache with TTL
func (bc *BigCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	entry := models.NewCacheEntry(val, bc.now(), ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		metrics.RecordCacheError("l1", "encode")
		return fmt.Errorf("failed to marshal L1 cache entry: %w", err)
	}

	if err := bc.cache.Set(key, data); err != nil {
		metrics.RecordCacheError("l1", "set")
		return fmt.Errorf("failed to set L1 cache entry: %w", err)
	}
	return nil
}

// Delete removes entry from cache
func (bc *BigCache) Delete(ctx context.Context, key string) error {
	err := bc.cache.Delete(key)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		metrics.RecordCacheError("l1", "delete")
		return fmt.Errorf("failed to delete L1 cache entry: %w", err)
	}
	return nil
}

// Close stops metrics collection and releases the cache
func (bc *BigCache) Close() error {
	bc.stopMetricsCollection()
	return bc.cache.Close()
}

// GetStats returns the allocated capacity in bytes and the number of stored entries
func (bc *BigCache) GetStats() (capacity, keys int64) {
	return int64(bc.cache.Capacity()), int64(bc.cache.Len())
}

// startMetricsCollection starts periodic metrics collection
func (bc *BigCache) startMetricsCollection() {
	bc.metricsScheduler = scheduler.New(metricsInterval, bc.updateMetrics)
	bc.metricsScheduler.Start()

	// Initial collection
	bc.updateMetrics()

	bc.logger.Debug("Started L1 cache metrics collection")
}

// stopMetricsCollection stops periodic metrics collection
func (bc *BigCache) stopMetricsCollection() {
	if bc.metricsScheduler != nil {
		bc.metricsScheduler.Stop()
		bc.logger.Debug("Stopped L1 cache metrics collection")
	}
}

func (bc *BigCache) updateMetrics() {
	capacity, keys := bc.GetStats()
	metrics.UpdateL1CacheCapacity(capacity)
	metrics.UpdateCacheKeys("l1", keys)
}
