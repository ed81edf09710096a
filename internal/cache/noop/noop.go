package noop

import (
	"context"
	"time"

	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/models"
)

// Ensure NoOpCache implements interfaces.Cache
var _ interfaces.Cache = (*NoOpCache)(nil)

// NoOpCache is a no-operation cache implementation for disabled levels
type NoOpCache struct{}

// NewNoOpCache creates a new no-operation cache instance
func NewNoOpCache() interfaces.Cache {
	return &NoOpCache{}
}

// Get always returns cache miss
func (n *NoOpCache) Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	return nil, false, nil
}

// Set does nothing
func (n *NoOpCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing
func (n *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}
