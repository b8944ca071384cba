// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/fairrank/internal/config"
)

// Config holds router, handler and results publisher settings.
type Config struct {
	RequestTopic string
	ResultTopic  string

	// Retry settings for transient failures.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// DeduplicationTTL is how long a payload hash is remembered.
	DeduplicationEnabled  bool
	DeduplicationTTL      time.Duration
	DeduplicationCapacity int

	// PoisonQueueTopic receives messages that failed permanently or
	// exhausted their retries. Empty disables the poison queue.
	PoisonQueueTopic string

	CloseTimeout time.Duration

	// RatePerSecond throttles the handler. Zero is unlimited.
	RatePerSecond float64
	Burst         int

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RequestTopic:          "fairrank-requests",
		ResultTopic:           "fairrank-results",
		RetryMaxRetries:       3,
		RetryInitialInterval:  100 * time.Millisecond,
		RetryMaxInterval:      10 * time.Second,
		RetryMultiplier:       2.0,
		DeduplicationEnabled:  true,
		DeduplicationTTL:      5 * time.Minute,
		DeduplicationCapacity: 10000,
		PoisonQueueTopic:      "fairrank-poison",
		CloseTimeout:          30 * time.Second,
		Burst:                 50,
		BreakerMaxFailures:    5,
		BreakerTimeout:        30 * time.Second,
	}
}

// ConfigFrom converts the loaded NATS configuration.
func ConfigFrom(n config.NATSConfig) Config {
	cfg := DefaultConfig()
	cfg.RequestTopic = n.RequestTopic
	cfg.ResultTopic = n.ResultTopic
	cfg.RetryMaxRetries = n.RouterRetryCount
	if n.RouterRetryInitialInterval > 0 {
		cfg.RetryInitialInterval = n.RouterRetryInitialInterval
	}
	cfg.DeduplicationEnabled = n.RouterDeduplicationEnabled
	if n.RouterDeduplicationTTL > 0 {
		cfg.DeduplicationTTL = n.RouterDeduplicationTTL
	}
	cfg.PoisonQueueTopic = ""
	if n.RouterPoisonQueueEnabled {
		cfg.PoisonQueueTopic = n.RouterPoisonQueueTopic
	}
	if n.RouterCloseTimeout > 0 {
		cfg.CloseTimeout = n.RouterCloseTimeout
	}
	cfg.RatePerSecond = n.HandlerRatePerSecond
	if n.HandlerBurst > 0 {
		cfg.Burst = n.HandlerBurst
	}
	if n.BreakerMaxFailures > 0 {
		cfg.BreakerMaxFailures = n.BreakerMaxFailures
	}
	if n.BreakerTimeout > 0 {
		cfg.BreakerTimeout = n.BreakerTimeout
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RequestTopic == "" || c.ResultTopic == "" {
		return fmt.Errorf("%w: request and result topics are required", ErrInvalidConfig)
	}
	if c.RequestTopic == c.ResultTopic {
		return fmt.Errorf("%w: request and result topics must differ", ErrInvalidConfig)
	}
	if c.PoisonQueueTopic == c.RequestTopic {
		return fmt.Errorf("%w: poison queue topic must differ from the request topic", ErrInvalidConfig)
	}
	if c.RetryMaxRetries < 0 {
		return fmt.Errorf("%w: retry count must be non-negative", ErrInvalidConfig)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("%w: handler rate must be non-negative", ErrInvalidConfig)
	}
	return nil
}
