package l2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"unidata-cache/internal/config"
	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/metrics"
	"unidata-cache/internal/models"
)

// PTTL sentinels as decoded by go-redis
const (
	pttlNoExpiry   = time.Duration(-1)
	pttlKeyMissing = time.Duration(-2)
)

// Ensure KeyDBCache implements interfaces.Cache
var _ interfaces.Cache = (*KeyDBCache)(nil)

// KeyDBCache implements the L2 level on Redis/KeyDB.
// Values are stored raw, so the key holds exactly the serialized document.
type KeyDBCache struct {
	client interfaces.KeyDbClient
	config *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewKeyDBCache creates a new KeyDBCache instance with provided client
func NewKeyDBCache(cfg *config.Config, client interfaces.KeyDbClient, logger *zap.Logger) *KeyDBCache {
	return &KeyDBCache{
		client: client,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Get retrieves value and remaining lifetime from KeyDB
func (kc *KeyDBCache) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	ctx, cancel := withOptionalTimeout(ctx, kc.config.GetReadTimeout())
	defer cancel()

	data, err := kc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheError("l2", "get")
		return nil, false, fmt.Errorf("l2 get %q: %w", key, err)
	}

	entry := &models.CacheEntry{Data: data}

	ttl, err := kc.client.PTTL(ctx, key).Result()
	switch {
	case err != nil:
		// The value is still good; only its lifetime is unknown
		kc.logger.Warn("L2 cache PTTL error", zap.String("key", key), zap.Error(err))
	case ttl == pttlKeyMissing:
		// expired between GET and PTTL
		return nil, false, nil
	case ttl == pttlNoExpiry:
		// persistent key, ExpiresAt stays 0
	case ttl > 0:
		entry.ExpiresAt = kc.now().Add(ttl).UnixMilli()
	}

	return entry, true, nil
}

// Set stores value in KeyDB with an expiration (SET key value EX ttl)
func (kc *KeyDBCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := withOptionalTimeout(ctx, kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.Set(ctx, key, val, ttl).Err(); err != nil {
		metrics.RecordCacheError("l2", "set")
		return fmt.Errorf("failed to set L2 cache entry: %w", err)
	}
	return nil
}

// Delete removes entry from KeyDB cache
func (kc *KeyDBCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := withOptionalTimeout(ctx, kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.Del(ctx, key).Err(); err != nil {
		metrics.RecordCacheError("l2", "delete")
		return fmt.Errorf("failed to delete L2 cache entry: %w", err)
	}
	return nil
}

// Ping checks that KeyDB is reachable
func (kc *KeyDBCache) Ping(ctx context.Context) error {
	return kc.client.Ping(ctx).Err()
}

// Close closes the KeyDB connection
func (kc *KeyDBCache) Close() error {
	return kc.client.Close()
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
