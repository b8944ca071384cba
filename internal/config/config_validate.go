// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks every configuration section and returns the first error.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateRerank,
		c.validateExposure,
		c.validateCache,
		c.validateStore,
		c.validateNATS,
		c.validateSecurity,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("server read and write timeouts must be positive")
	}
	switch strings.ToLower(c.Server.Environment) {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Rerank limits
const (
	rerankMaxItemsCeiling  = 1_000_000
	rerankMaxGroupsCeiling = 4096
	rerankMaxTolerance     = 0.01
)

func (c *Config) validateRerank() error {
	r := c.Rerank
	switch strings.ToLower(r.DefaultAlgorithm) {
	case "detconsort", "calibrated", "mmr":
	default:
		return fmt.Errorf("RERANK_DEFAULT_ALGORITHM %q is not a known algorithm", r.DefaultAlgorithm)
	}
	if r.MaxItems < 1 || r.MaxItems > rerankMaxItemsCeiling {
		return fmt.Errorf("RERANK_MAX_ITEMS must be between 1 and %d, got %d", rerankMaxItemsCeiling, r.MaxItems)
	}
	if r.MaxGroups < 1 || r.MaxGroups > rerankMaxGroupsCeiling {
		return fmt.Errorf("RERANK_MAX_GROUPS must be between 1 and %d, got %d", rerankMaxGroupsCeiling, r.MaxGroups)
	}
	if r.SumTolerance <= 0 || r.SumTolerance > rerankMaxTolerance {
		return fmt.Errorf("RERANK_SUM_TOLERANCE must be in (0, %g], got %g", rerankMaxTolerance, r.SumTolerance)
	}
	if r.Lambda < 0 || r.Lambda > 1 {
		return fmt.Errorf("RERANK_LAMBDA must be in [0, 1], got %g", r.Lambda)
	}
	if r.Window < 1 {
		return fmt.Errorf("RERANK_WINDOW must be at least 1, got %d", r.Window)
	}
	if r.Timeout <= 0 {
		return errors.New("RERANK_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateExposure() error {
	switch strings.ToUpper(c.Exposure.DefaultMetric) {
	case "EXP", "EXPU", "EXPRU":
	default:
		return fmt.Errorf("EXPOSURE_DEFAULT_METRIC %q is not a known metric", c.Exposure.DefaultMetric)
	}
	if c.Exposure.DefaultReducer == "" {
		return errors.New("EXPOSURE_DEFAULT_REDUCER is required")
	}
	if c.Exposure.MaxItems < 1 {
		return fmt.Errorf("EXPOSURE_MAX_ITEMS must be positive, got %d", c.Exposure.MaxItems)
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.Size < 1 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if c.Cache.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative, got %d", c.Cache.RedisDB)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.Enabled {
		return nil
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("STORE_PATH is required unless STORE_IN_MEMORY is set")
	}
	if c.Store.Retention < 0 {
		return errors.New("STORE_RETENTION must not be negative")
	}
	if c.Store.GCInterval < time.Minute {
		return fmt.Errorf("STORE_GC_INTERVAL must be at least 1m, got %v", c.Store.GCInterval)
	}
	return nil
}

// NATS limits
const (
	natsMaxSubscribers = 32
	natsMaxRetries     = 20
)

func (c *Config) validateNATS() error {
	n := c.NATS
	if !n.Enabled {
		return nil
	}
	if err := validateNATSURL(n.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if n.RequestTopic == "" || n.ResultTopic == "" {
		return errors.New("NATS request and result topics are required")
	}
	if n.RequestTopic == n.ResultTopic {
		return errors.New("NATS request and result topics must differ")
	}
	if n.SubscribersCount < 1 || n.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and %d, got %d", natsMaxSubscribers, n.SubscribersCount)
	}
	if n.RouterRetryCount < 0 || n.RouterRetryCount > natsMaxRetries {
		return fmt.Errorf("NATS_ROUTER_RETRY_COUNT must be between 0 and %d, got %d", natsMaxRetries, n.RouterRetryCount)
	}
	if n.RouterPoisonQueueEnabled && n.RouterPoisonQueueTopic == "" {
		return errors.New("NATS_ROUTER_POISON_TOPIC is required when the poison queue is enabled")
	}
	if n.HandlerRatePerSecond < 0 {
		return errors.New("NATS_HANDLER_RATE must not be negative")
	}
	if n.HandlerRatePerSecond > 0 && n.HandlerBurst < 1 {
		return errors.New("NATS_HANDLER_BURST must be positive when a handler rate is set")
	}
	if n.BreakerMaxFailures == 0 {
		return errors.New("NATS_BREAKER_MAX_FAILURES must be positive")
	}
	return nil
}

// validateNATSURL accepts nats, tls, ws and wss URLs with a host.
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}

	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if !s.RateLimitDisabled {
		if s.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", s.RateLimitReqs)
		}
		if s.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", s.RateLimitWindow)
		}
	}
	if s.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024, got %d", s.MaxBodyBytes)
	}
	if c.IsProduction() && c.hasWildcardCORS() {
		return errors.New("CORS_ORIGINS must not contain * in production")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
