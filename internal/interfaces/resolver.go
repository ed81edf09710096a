package interfaces

import (
	"context"

	"unidata-cache/internal/models"
)

//go:generate mockgen -package=mock -source=resolver.go -destination=mock/resolver.go

// Resolver answers lookups from cache, falling back to the upstream on a miss
type Resolver interface {
	Resolve(ctx context.Context, country string) (*models.LookupResult, error)
}
