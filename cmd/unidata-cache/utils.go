package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"unidata-cache/internal/config"
)

const (
	defaultConfigPath   = "/app/cache_config.yaml"
	defaultKeyDBURLFile = "/app/.keydb-url"
	defaultKeyDBURL     = "redis://redis:6379/0"
	envConfigFile       = "CACHE_CONFIG_FILE"
	envKeyDBURL         = "KEYDB_URL"
	envKeyDBURLFile     = "CACHE_KEYDB_URL_FILE"
	envListenAddr       = "LISTEN_ADDR"
	envUpstreamURL      = "UPSTREAM_URL"
)

// GetKeyDBURL returns KeyDB URL with the following priority:
// 1. KEYDB_URL environment variable
// 2. CACHE_KEYDB_URL_FILE file content
// 3. Default value
func GetKeyDBURL(logger *zap.Logger) string {
	// Priority 1: Environment variable
	if keydbURL := os.Getenv(envKeyDBURL); keydbURL != "" {
		logger.Debug("Using KeyDB URL from environment variable")
		return keydbURL
	}

	// Priority 2: Configurable connection file path
	connectionFile := os.Getenv(envKeyDBURLFile)
	if connectionFile == "" {
		connectionFile = defaultKeyDBURLFile
	}

	if content, err := os.ReadFile(connectionFile); err == nil {
		keydbURL := strings.TrimSpace(string(content))
		if len(keydbURL) > 0 {
			logger.Debug("Using KeyDB URL from connection file", zap.String("file", connectionFile))
			return keydbURL
		}
	} else {
		logger.Debug("KeyDB connection file not found or empty", zap.String("file", connectionFile))
	}

	// Priority 3: Default
	logger.Debug("Using default KeyDB URL")
	return defaultKeyDBURL
}

// LoadConfiguration reads the YAML config named by CACHE_CONFIG_FILE.
// When the variable is unset and the default file does not exist, built-in defaults are used.
func LoadConfiguration(logger *zap.Logger) (*config.Config, error) {
	configPath := os.Getenv(envConfigFile)
	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath
	}

	var cfg *config.Config
	if _, err := os.Stat(configPath); !explicit && errors.Is(err, fs.ErrNotExist) {
		logger.Info("Config file not found, using defaults", zap.String("path", configPath))
		cfg = config.Default()
	} else {
		loaded, err := config.LoadConfig(configPath, logger)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg, logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environment variables win over the file
func applyEnvOverrides(cfg *config.Config, logger *zap.Logger) {
	if addr := os.Getenv(envListenAddr); addr != "" {
		logger.Debug("Using listen address from environment", zap.String("addr", addr))
		cfg.Server.ListenAddr = addr
	}
	if upstreamURL := os.Getenv(envUpstreamURL); upstreamURL != "" {
		logger.Debug("Using upstream URL from environment", zap.String("url", upstreamURL))
		cfg.Upstream.BaseURL = upstreamURL
	}
}
