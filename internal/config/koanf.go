// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fairrank/config.yaml",
	"/etc/fairrank/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8085,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Rerank: RerankConfig{
			DefaultAlgorithm: "detconsort",
			MaxItems:         10000,
			MaxGroups:        64,
			SumTolerance:     1e-6,
			Lambda:           0.7,
			Window:           1,
			Timeout:          5 * time.Second,
			AuditFloors:      true,
			PresetsPath:      "",
		},
		Exposure: ExposureConfig{
			DefaultMetric:  "EXP",
			DefaultReducer: "MinMaxRatio",
			MaxItems:       10000,
		},
		Cache: CacheConfig{
			Enabled:     true,
			Size:        1024,
			TTL:         5 * time.Minute,
			RedisAddr:   "", // Redis tier is opt-in
			RedisDB:     0,
			RedisPrefix: "fairrank:",
		},
		Store: StoreConfig{
			Enabled:    true,
			Path:       "/data/fairrank/runs",
			InMemory:   false,
			Retention:  7 * 24 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled:   false,
			Path:      "/data/fairrank/analytics.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = DuckDB default
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/fairrank/jetstream",
			MaxMemory:        256 << 20, // 256MB
			MaxStore:         1 << 30,   // 1GB
			RequestTopic:     "fairrank-requests",
			ResultTopic:      "fairrank-results",
			DurableName:      "fairrank-reranker",
			QueueGroup:       "rerankers",
			SubscribersCount: 2,

			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterDeduplicationEnabled: true,
			RouterDeduplicationTTL:     5 * time.Minute,
			RouterPoisonQueueEnabled:   true,
			RouterPoisonQueueTopic:     "fairrank-poison",
			RouterCloseTimeout:         30 * time.Second,

			HandlerRatePerSecond: 0, // Unlimited
			HandlerBurst:         50,

			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			MaxBodyBytes:      4 << 20, // 4MB
		},
	}
}

// Load loads configuration with Koanf v2 from defaults, an optional YAML
// file and environment variables, in increasing priority, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, CACHE_TTL -> cache.ttl
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Reranking
	"rerank_default_algorithm": "rerank.default_algorithm",
	"rerank_max_items":         "rerank.max_items",
	"rerank_max_groups":        "rerank.max_groups",
	"rerank_sum_tolerance":     "rerank.sum_tolerance",
	"rerank_lambda":            "rerank.lambda",
	"rerank_window":            "rerank.window",
	"rerank_timeout":           "rerank.timeout",
	"rerank_audit_floors":      "rerank.audit_floors",
	"rerank_presets_path":      "rerank.presets_path",

	// Exposure
	"exposure_default_metric":  "exposure.default_metric",
	"exposure_default_reducer": "exposure.default_reducer",
	"exposure_max_items":       "exposure.max_items",

	// Cache
	"cache_enabled":  "cache.enabled",
	"cache_size":     "cache.size",
	"cache_ttl":      "cache.ttl",
	"redis_addr":     "cache.redis_addr",
	"redis_password": "cache.redis_password",
	"redis_db":       "cache.redis_db",
	"redis_prefix":   "cache.redis_prefix",

	// Store
	"store_enabled":     "store.enabled",
	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_retention":   "store.retention",
	"store_gc_interval": "store.gc_interval",

	// Analytics
	"analytics_enabled": "analytics.enabled",
	"duckdb_path":       "analytics.path",
	"duckdb_max_memory": "analytics.max_memory",
	"duckdb_threads":    "analytics.threads",

	// NATS
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_embedded":              "nats.embedded_server",
	"nats_store_dir":             "nats.store_dir",
	"nats_max_memory":            "nats.max_memory",
	"nats_max_store":             "nats.max_store",
	"nats_request_topic":         "nats.request_topic",
	"nats_result_topic":          "nats.result_topic",
	"nats_durable_name":          "nats.durable_name",
	"nats_queue_group":           "nats.queue_group",
	"nats_subscribers":           "nats.subscribers_count",
	"nats_router_retry_count":    "nats.router_retry_count",
	"nats_router_retry_interval": "nats.router_retry_initial_interval",
	"nats_router_dedup_enabled":  "nats.router_deduplication_enabled",
	"nats_router_dedup_ttl":      "nats.router_deduplication_ttl",
	"nats_router_poison_enabled": "nats.router_poison_queue_enabled",
	"nats_router_poison_topic":   "nats.router_poison_queue_topic",
	"nats_router_close_timeout":  "nats.router_close_timeout",
	"nats_handler_rate":          "nats.handler_rate_per_second",
	"nats_handler_burst":         "nats.handler_burst",
	"nats_breaker_max_failures":  "nats.breaker_max_failures",
	"nats_breaker_timeout":       "nats.breaker_timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"max_body_bytes":      "security.max_body_bytes",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
