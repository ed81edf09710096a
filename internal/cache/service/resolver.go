package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/metrics"
	"unidata-cache/internal/models"
	"unidata-cache/internal/utils"
)

// Ensure Resolver implements interfaces.Resolver
var _ interfaces.Resolver = (*Resolver)(nil)

// Options controls the cache-aside policy
type Options struct {
	// TTL is applied to every entry written after an upstream fetch
	TTL time.Duration
	// PurgeCorrupt deletes an undecodable cached value so the next lookup refetches it.
	// The lookup that found it still fails.
	PurgeCorrupt bool
	// SingleFlight collapses concurrent misses for one key into a single upstream call
	SingleFlight bool
}

// Resolver implements the cache-aside lookup: serve from cache, otherwise fetch
// from the upstream, store the result with a TTL and return it.
type Resolver struct {
	cache      interfaces.LevelAwareCache
	upstream   interfaces.UpstreamClient
	keyBuilder interfaces.KeyBuilder
	opts       Options
	group      *singleflight.Group
	logger     *zap.Logger
}

// NewResolver creates a new Resolver
func NewResolver(
	cache interfaces.LevelAwareCache,
	upstream interfaces.UpstreamClient,
	keyBuilder interfaces.KeyBuilder,
	opts Options,
	logger *zap.Logger,
) *Resolver {
	r := &Resolver{
		cache:      cache,
		upstream:   upstream,
		keyBuilder: keyBuilder,
		opts:       opts,
		logger:     logger,
	}
	if opts.SingleFlight {
		r.group = &singleflight.Group{}
	}
	return r
}

// Resolve returns the decoded document for country.
//
// A cached value that does not decode fails with ErrCacheDecode without contacting the
// upstream. An upstream body that does not decode fails with ErrUpstreamDecode and is
// not cached. Store and transport failures are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, country string) (*models.LookupResult, error) {
	// once started, a lookup runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	key := r.keyBuilder.Build(country)

	metrics.RecordCacheRequest()

	timer := metrics.TimeCacheOperation("get", "multi")
	entry, level, found, err := r.cache.GetWithLevel(ctx, key)
	timer()
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	// an empty value cannot be a JSON document and is treated as absent
	if found && len(entry.Data) > 0 {
		return r.fromCache(ctx, key, entry, level)
	}

	metrics.RecordCacheMiss()
	r.logger.Debug("Cache miss", zap.String("key", key))

	var data interface{}
	if r.group != nil {
		data, err, _ = r.group.Do(key, func() (interface{}, error) {
			return r.fetchAndStore(ctx, key, country)
		})
	} else {
		data, err = r.fetchAndStore(ctx, key, country)
	}
	if err != nil {
		return nil, err
	}

	return &models.LookupResult{
		Data:   data,
		Status: models.CacheStatusMiss,
		Level:  models.CacheLevelMiss,
	}, nil
}

func (r *Resolver) fromCache(ctx context.Context, key string, entry *models.CacheEntry, level models.CacheLevel) (*models.LookupResult, error) {
	label := levelLabel(level)
	metrics.RecordCacheHit(label)
	r.logger.Debug("Cache hit", zap.String("key", key), zap.String("level", string(level)))

	data, err := utils.DecodeJSON(entry.Data)
	if err != nil {
		metrics.RecordCacheError(label, "decode")
		r.logger.Warn("Failed to decode cached data",
			zap.String("key", key),
			zap.String("level", string(level)),
			zap.Error(err))

		if r.opts.PurgeCorrupt {
			if delErr := r.cache.Delete(ctx, key); delErr != nil {
				r.logger.Error("Failed to purge corrupted entry", zap.String("key", key), zap.Error(delErr))
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrCacheDecode, err)
	}

	return &models.LookupResult{
		Data:   data,
		Status: models.CacheStatusHit,
		Level:  level,
	}, nil
}

func (r *Resolver) fetchAndStore(ctx context.Context, key, country string) (interface{}, error) {
	resp, err := r.upstream.Fetch(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}

	// the status code is not checked, any decodable body is cached
	data, err := utils.DecodeJSON(resp.Body)
	if err != nil {
		r.logger.Warn("Failed to decode upstream data",
			zap.String("country", country),
			zap.Int("status_code", resp.StatusCode),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstreamDecode, err)
	}

	encoded, err := utils.EncodeJSON(data)
	if err != nil {
		r.logger.Error("Failed to encode upstream data for caching", zap.String("key", key), zap.Error(err))
		return data, nil
	}

	timer := metrics.TimeCacheOperation("set", "multi")
	err = r.cache.Set(ctx, key, encoded, r.opts.TTL)
	timer()
	if err != nil {
		r.logger.Error("Failed to store upstream data", zap.String("key", key), zap.Error(err))
	}

	return data, nil
}

func levelLabel(level models.CacheLevel) string {
	return strings.ToLower(string(level))
}
