package interfaces

import (
	"context"

	"unidata-cache/internal/models"
)

//go:generate mockgen -package=mock -source=upstream.go -destination=mock/upstream.go

// UpstreamClient fetches university records for a country from the directory API
type UpstreamClient interface {
	Fetch(ctx context.Context, country string) (*models.UpstreamResponse, error)
}
