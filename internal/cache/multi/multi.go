package multi

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/models"
)

// Ensure MultiCache implements interfaces.LevelAwareCache
var _ interfaces.LevelAwareCache = (*MultiCache)(nil)

// Level pairs a cache with the name it is reported under
type Level struct {
	Name  models.CacheLevel
	Cache interfaces.Cache
}

// MultiCache implements a composite cache that tries multiple levels in order
type MultiCache struct {
	levels            []Level
	logger            *zap.Logger
	enablePropagation bool
	now               func() time.Time
}

// NewMultiCache creates a new MultiCache with levels ordered fastest first
func NewMultiCache(levels []Level, logger *zap.Logger, enablePropagation bool) *MultiCache {
	return &MultiCache{
		levels:            levels,
		logger:            logger,
		enablePropagation: enablePropagation,
		now:               time.Now,
	}
}

// Get retrieves the entry from the first level that has the key
func (mc *MultiCache) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	entry, _, found, err := mc.GetWithLevel(ctx, key)
	return entry, found, err
}

// GetWithLevel is Get that also reports which level answered.
// A failing level is skipped; its error is returned only if no later level has the key.
func (mc *MultiCache) GetWithLevel(ctx context.Context, key string) (*models.CacheEntry, models.CacheLevel, bool, error) {
	if len(mc.levels) == 0 {
		mc.logger.Warn("No caches available for get operation", zap.String("key", key))
		return nil, models.CacheLevelMiss, false, nil
	}

	var errs []error
	for i, level := range mc.levels {
		entry, found, err := level.Cache.Get(ctx, key)
		if err != nil {
			mc.logger.Error("Cache level get failed",
				zap.String("level", string(level.Name)),
				zap.String("key", key),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !found {
			continue
		}

		if mc.enablePropagation && i > 0 {
			mc.propagate(ctx, key, entry, mc.levels[:i])
		}
		return entry, level.Name, true, nil
	}

	return nil, models.CacheLevelMiss, false, errors.Join(errs...)
}

// propagate back-fills faster levels with the remaining lifetime of the hit.
// Entries whose lifetime is unknown are not copied, so no level outlives the source.
func (mc *MultiCache) propagate(ctx context.Context, key string, entry *models.CacheEntry, levels []Level) {
	if entry.ExpiresAt == 0 {
		return
	}

	ttl := entry.RemainingTTL(mc.now())
	for _, level := range levels {
		if err := level.Cache.Set(ctx, key, entry.Data, ttl); err != nil {
			mc.logger.Warn("Failed to propagate entry",
				zap.String("level", string(level.Name)),
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// Set stores value in all levels and reports every failure
func (mc *MultiCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if len(mc.levels) == 0 {
		mc.logger.Warn("No caches available for set operation", zap.String("key", key))
		return nil
	}

	var errs []error
	for _, level := range mc.levels {
		if err := level.Cache.Set(ctx, key, val, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes entry from all levels
func (mc *MultiCache) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, level := range mc.levels {
		if err := level.Cache.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
