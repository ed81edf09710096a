package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"unidata-cache/internal/cache"
	"unidata-cache/internal/cache/l1"
	"unidata-cache/internal/cache/l2"
	"unidata-cache/internal/cache/multi"
	"unidata-cache/internal/cache/noop"
	"unidata-cache/internal/cache/service"
	"unidata-cache/internal/config"
	"unidata-cache/internal/httpserver"
	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/models"
	"unidata-cache/internal/upstream"
)

// CompositionRoot holds all application dependencies and is the single place
// where they are created, wired together and released.
type CompositionRoot struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger

	// Cache components
	L1Cache    interfaces.Cache
	L2Cache    interfaces.Cache
	Cache      interfaces.LevelAwareCache
	KeyBuilder interfaces.KeyBuilder

	// Services
	Upstream   interfaces.UpstreamClient
	Resolver   interfaces.Resolver
	HTTPServer *httpserver.Server
}

// NewCompositionRoot creates and initializes all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Configuration (file, defaults and environment overrides)
// 3. Cache components (L1, L2, MultiCache, KeyBuilder)
// 4. Services (upstream client and resolver)
// 5. HTTP Server (uses all above components)
func NewCompositionRoot() (*CompositionRoot, error) {
	root := &CompositionRoot{}

	// Initialize logger first
	if err := root.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load configuration
	if err := root.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize cache components
	if err := root.initCacheComponents(); err != nil {
		_ = root.Cleanup()
		return nil, fmt.Errorf("failed to initialize cache components: %w", err)
	}

	// Initialize services
	if err := root.initServices(); err != nil {
		_ = root.Cleanup()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize HTTP server
	root.HTTPServer = httpserver.NewServer(root.Resolver, root.Config, root.Logger)

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	r.Logger = logger
	installRedisLogger(logger)
	return nil
}

// loadConfig loads the application configuration
func (r *CompositionRoot) loadConfig() error {
	cfg, err := LoadConfiguration(r.Logger)
	if err != nil {
		return err
	}

	r.Config = cfg
	return nil
}

// initCacheComponents initializes all cache-related components
func (r *CompositionRoot) initCacheComponents() error {
	// Initialize L1 cache (BigCache)
	if err := r.initL1Cache(); err != nil {
		return fmt.Errorf("failed to initialize L1 cache: %w", err)
	}

	// Initialize L2 cache (KeyDB)
	if err := r.initL2Cache(); err != nil {
		return fmt.Errorf("failed to initialize L2 cache: %w", err)
	}

	r.Cache = multi.NewMultiCache([]multi.Level{
		{Name: models.CacheLevelL1, Cache: r.L1Cache},
		{Name: models.CacheLevelL2, Cache: r.L2Cache},
	}, r.Logger, r.Config.MultiCache.EnablePropagation)

	r.KeyBuilder = cache.NewKeyBuilder(r.Config.Cache.KeyPrefix)

	return nil
}

// initL1Cache initializes the L1 cache (BigCache)
func (r *CompositionRoot) initL1Cache() error {
	if r.Config.L1.Enabled {
		l1Cache, err := l1.NewBigCache(&r.Config.L1, r.Config.GetCacheTTL(), r.Logger)
		if err != nil {
			return err
		}
		r.L1Cache = l1Cache
		r.Logger.Info("BigCache (L1) initialized", zap.Int("size_mb", r.Config.L1.Size))
	} else {
		r.L1Cache = noop.NewNoOpCache()
		r.Logger.Info("BigCache (L1) disabled")
	}
	return nil
}

// initL2Cache initializes the L2 cache (KeyDB). The store is the source of
// truth for cached lookups, so an unreachable KeyDB stops startup.
func (r *CompositionRoot) initL2Cache() error {
	if !r.Config.L2.Enabled {
		r.L2Cache = noop.NewNoOpCache()
		r.Logger.Info("KeyDB (L2) disabled")
		return nil
	}

	keydbURL := GetKeyDBURL(r.Logger)
	keydbClient, err := l2.NewRedisKeyDbClient(r.Config, keydbURL, r.Logger)
	if err != nil {
		return err
	}

	r.L2Cache = l2.NewKeyDBCache(r.Config, keydbClient, r.Logger)
	r.Logger.Info("KeyDB (L2) initialized")
	return nil
}

// initServices initializes application services
func (r *CompositionRoot) initServices() error {
	client, err := upstream.NewClient(&r.Config.Upstream, r.Config.GetUpstreamTimeout(), r.Logger)
	if err != nil {
		return err
	}
	r.Upstream = client

	r.Resolver = service.NewResolver(
		r.Cache,
		r.Upstream,
		r.KeyBuilder,
		service.Options{
			TTL:          r.Config.GetCacheTTL(),
			PurgeCorrupt: r.Config.Cache.PurgeCorrupt,
			SingleFlight: r.Config.Cache.SingleFlight,
		},
		r.Logger,
	)

	return nil
}

// Cleanup performs cleanup of all resources
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	// Close L1 cache
	if l1BigCache, ok := r.L1Cache.(*l1.BigCache); ok {
		if err := l1BigCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L1 cache: %w", err))
		}
	}

	// Close L2 cache
	if l2KeyDBCache, ok := r.L2Cache.(*l2.KeyDBCache); ok {
		if err := l2KeyDBCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L2 cache: %w", err))
		}
	}

	// Sync logger
	if r.Logger != nil {
		_ = r.Logger.Sync()
	}

	return errors.Join(errs...)
}
