// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package config

import "time"

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("config")
//	}
//	addr := cfg.Server.Addr()
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Rerank    RerankConfig    `koanf:"rerank"`
	Exposure  ExposureConfig  `koanf:"exposure"`
	Cache     CacheConfig     `koanf:"cache"`
	Store     StoreConfig     `koanf:"store"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	NATS      NATSConfig      `koanf:"nats"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// LoggingConfig holds logger settings. See logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RerankConfig holds reranking limits and algorithm defaults.
type RerankConfig struct {
	// DefaultAlgorithm is used when a request names none.
	DefaultAlgorithm string `koanf:"default_algorithm"`

	// MaxItems caps the candidate list length accepted per request.
	MaxItems int `koanf:"max_items"`

	// MaxGroups caps the number of groups in a target distribution.
	MaxGroups int `koanf:"max_groups"`

	// SumTolerance is the allowed deviation of distribution sums from 1.
	SumTolerance float64 `koanf:"sum_tolerance"`

	// Lambda and Window configure the calibrated and mmr rerankers.
	Lambda float64 `koanf:"lambda"`
	Window int     `koanf:"window"`

	// Timeout bounds a single rerank call.
	Timeout time.Duration `koanf:"timeout"`

	// AuditFloors runs a prefix fairness audit on every result.
	AuditFloors bool `koanf:"audit_floors"`

	// PresetsPath points to a YAML file of named distributions.
	// The built-in presets are used when empty.
	PresetsPath string `koanf:"presets_path"`
}

// ExposureConfig holds exposure metric defaults.
type ExposureConfig struct {
	DefaultMetric  string `koanf:"default_metric"`
	DefaultReducer string `koanf:"default_reducer"`

	// MaxItems caps the ranking length accepted for evaluation.
	MaxItems int `koanf:"max_items"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Size    int           `koanf:"size"`
	TTL     time.Duration `koanf:"ttl"`

	// RedisAddr enables the shared Redis tier when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// StoreConfig holds run history storage settings.
type StoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`

	// InMemory keeps run history in memory only.
	InMemory bool `koanf:"in_memory"`

	// Retention is the TTL of a stored run. Zero keeps runs forever.
	Retention time.Duration `koanf:"retention"`

	// GCInterval is how often the value log is garbage collected.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// AnalyticsConfig holds DuckDB analytics settings.
type AnalyticsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the DuckDB database file. Empty opens an in-memory database.
	Path string `koanf:"path"`

	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// NATSConfig holds event processing settings.
type NATSConfig struct {
	// Enabled controls whether event processing is active.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server.
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	RequestTopic string `koanf:"request_topic"`
	ResultTopic  string `koanf:"result_topic"`

	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`

	// Router settings (Watermill Router middleware)
	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterDeduplicationEnabled bool          `koanf:"router_deduplication_enabled"`
	RouterDeduplicationTTL     time.Duration `koanf:"router_deduplication_ttl"`
	RouterPoisonQueueEnabled   bool          `koanf:"router_poison_queue_enabled"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`

	// HandlerRatePerSecond throttles the request handler. Zero is unlimited.
	HandlerRatePerSecond float64 `koanf:"handler_rate_per_second"`
	HandlerBurst         int     `koanf:"handler_burst"`

	// Circuit breaker around the results publisher.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}
