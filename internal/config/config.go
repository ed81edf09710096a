package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr      = ":8081"
	DefaultUpstreamURL     = "http://universities.hipolabs.com/search"
	DefaultUpstreamParam   = "country"
	DefaultUserAgent       = "unidata-cache/1.0"
	DefaultCacheTTLSeconds = 86400
)

var validate = validator.New()

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Cache      CacheConfig      `yaml:"cache"`
	L1         L1Config         `yaml:"l1"`
	L2         L2Config         `yaml:"l2"`
	MultiCache MultiCacheConfig `yaml:"multi_cache"`
}

// ServerConfig holds the inbound HTTP server settings. Timeouts are in milliseconds, 0 disables them.
type ServerConfig struct {
	ListenAddr      string `yaml:"listen_addr" validate:"required"`
	ReadTimeout     int    `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    int    `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     int    `yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" validate:"gte=0"`
}

// UpstreamConfig describes the university directory API
type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	QueryParam string `yaml:"query_param" validate:"required"`
	UserAgent  string `yaml:"user_agent"`
	Timeout    int    `yaml:"timeout" validate:"gte=0"` // milliseconds, 0 waits indefinitely
}

// CacheConfig holds the cache-aside policy
type CacheConfig struct {
	TTL          int    `yaml:"ttl" validate:"gt=0"` // seconds
	KeyPrefix    string `yaml:"key_prefix"`
	PurgeCorrupt bool   `yaml:"purge_corrupt"`
	SingleFlight bool   `yaml:"single_flight"`
}

// L1Config configures the in-process BigCache level
type L1Config struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size" validate:"gte=0"` // MB
}

// L2Config configures the KeyDB/Redis level
type L2Config struct {
	Enabled    bool             `yaml:"enabled"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts in milliseconds. Zero send/read timeouts wait indefinitely.
type ConnectionConfig struct {
	ConnectTimeout int `yaml:"connect_timeout" validate:"gte=0"`
	SendTimeout    int `yaml:"send_timeout" validate:"gte=0"`
	ReadTimeout    int `yaml:"read_timeout" validate:"gte=0"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int `yaml:"pool_size" validate:"gte=0"`
	MaxIdleTimeout int `yaml:"max_idle_timeout" validate:"gte=0"` // milliseconds
}

// MultiCacheConfig controls how levels cooperate
type MultiCacheConfig struct {
	EnablePropagation bool `yaml:"enable_propagation"`
}

// Default returns the configuration used when no file is provided
func Default() *Config {
	config := baseConfig()
	config.applyDefaults()
	return config
}

// baseConfig holds the switches that default to on. A file only turns them off explicitly.
func baseConfig() *Config {
	return &Config{
		L2: L2Config{Enabled: true},
		MultiCache: MultiCacheConfig{
			EnablePropagation: true,
		},
	}
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	config := baseConfig()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	// Apply defaults
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints after defaults have been applied
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30000
	}

	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamURL
	}
	if c.Upstream.QueryParam == "" {
		c.Upstream.QueryParam = DefaultUpstreamParam
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = DefaultUserAgent
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTLSeconds
	}

	if c.L1.Size == 0 {
		c.L1.Size = 100
	}

	if c.L2.Connection.ConnectTimeout == 0 {
		c.L2.Connection.ConnectTimeout = 5000
	}
	if c.L2.Keepalive.PoolSize == 0 {
		c.L2.Keepalive.PoolSize = 10
	}
	if c.L2.Keepalive.MaxIdleTimeout == 0 {
		c.L2.Keepalive.MaxIdleTimeout = 300000
	}
}

// GetCacheTTL returns the expiration applied to every cache write
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// GetUpstreamTimeout returns the upstream request timeout, 0 means none
func (c *Config) GetUpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.Timeout) * time.Millisecond
}

// GetConnectTimeout returns the KeyDB dial timeout
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.L2.Connection.ConnectTimeout) * time.Millisecond
}

// GetSendTimeout returns the KeyDB write timeout, 0 means none
func (c *Config) GetSendTimeout() time.Duration {
	return time.Duration(c.L2.Connection.SendTimeout) * time.Millisecond
}

// GetReadTimeout returns the KeyDB read timeout, 0 means none
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.L2.Connection.ReadTimeout) * time.Millisecond
}

// GetMaxIdleTimeout returns how long an idle KeyDB connection is kept
func (c *Config) GetMaxIdleTimeout() time.Duration {
	return time.Duration(c.L2.Keepalive.MaxIdleTimeout) * time.Millisecond
}

// GetServerReadTimeout returns the inbound read timeout
func (c *Config) GetServerReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Millisecond
}

// GetServerWriteTimeout returns the inbound write timeout
func (c *Config) GetServerWriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Millisecond
}

// GetServerIdleTimeout returns the keep-alive idle timeout
func (c *Config) GetServerIdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeout) * time.Millisecond
}

// GetShutdownTimeout returns the graceful shutdown deadline
func (c *Config) GetShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Millisecond
}
