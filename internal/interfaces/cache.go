package interfaces

import (
	"context"
	"time"

	"unidata-cache/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache interface defines the contract for store levels
type Cache interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, bool, error) // returns entry and found flag
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LevelAwareCache is a Cache that can report which level served a hit
type LevelAwareCache interface {
	Cache
	GetWithLevel(ctx context.Context, key string) (*models.CacheEntry, models.CacheLevel, bool, error)
}
