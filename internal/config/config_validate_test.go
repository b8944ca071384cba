// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package config

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown environment", func(c *Config) { c.Server.Environment = "staging" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"unknown algorithm", func(c *Config) { c.Rerank.DefaultAlgorithm = "random" }, true},
		{"algorithm case insensitive", func(c *Config) { c.Rerank.DefaultAlgorithm = "MMR" }, false},
		{"lambda negative", func(c *Config) { c.Rerank.Lambda = -0.1 }, true},
		{"window zero", func(c *Config) { c.Rerank.Window = 0 }, true},
		{"tolerance zero", func(c *Config) { c.Rerank.SumTolerance = 0 }, true},
		{"max groups zero", func(c *Config) { c.Rerank.MaxGroups = 0 }, true},
		{"unknown metric", func(c *Config) { c.Exposure.DefaultMetric = "NDCG" }, true},
		{"cache size zero", func(c *Config) { c.Cache.Size = 0 }, true},
		{"cache disabled ignores size", func(c *Config) { c.Cache.Enabled = false; c.Cache.Size = 0 }, false},
		{"store without path", func(c *Config) { c.Store.Path = "" }, true},
		{"in-memory store without path", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = true }, false},
		{"store gc too frequent", func(c *Config) { c.Store.GCInterval = time.Second }, true},
		{"nats bad url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "http://localhost" }, true},
		{"nats same topics", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.ResultTopic = c.NATS.RequestTopic
		}, true},
		{"nats rate without burst", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.HandlerRatePerSecond = 10
			c.NATS.HandlerBurst = 0
		}, true},
		{"nats enabled defaults", func(c *Config) { c.NATS.Enabled = true }, false},
		{"rate limit zero", func(c *Config) { c.Security.RateLimitReqs = 0 }, true},
		{"rate limit disabled", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, false},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, true},
		{"explicit cors in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"https://app.example"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNATSURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"nats://127.0.0.1:4222", false},
		{"tls://nats.example.com:4222", false},
		{"wss://nats.example.com", false},
		{"http://127.0.0.1:4222", true},
		{"nats://", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if err := validateNATSURL(tt.url); (err != nil) != tt.wantErr {
				t.Errorf("validateNATSURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
