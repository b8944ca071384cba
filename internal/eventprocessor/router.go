// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Router wraps the Watermill Router with pre-configured middleware.
type Router struct {
	router  *message.Router
	dedup   *Deduplicator
	logger  watermill.LoggerAdapter
	running atomic.Bool
}

// NewRouter creates a Watermill Router. poisonPublisher may be nil, in
// which case permanent failures are logged and acknowledged.
//
// Middleware order (outer to inner):
//  1. Recoverer
//  2. Deduplicator (if enabled)
//  3. PoisonQueue for messages that exhausted their retries
//  4. Retry
//  5. PoisonQueue for permanent errors, which skip Retry
func NewRouter(cfg Config, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{router: wmRouter, logger: logger}

	wmRouter.AddMiddleware(middleware.Recoverer)

	if cfg.DeduplicationEnabled {
		r.dedup = NewDeduplicator(cfg.DeduplicationCapacity, cfg.DeduplicationTTL)
		wmRouter.AddMiddleware(r.dedup.Middleware)
	}

	poisonEnabled := poisonPublisher != nil && cfg.PoisonQueueTopic != ""
	if poisonEnabled {
		poisonQueue, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	if poisonEnabled {
		permanent, err := middleware.PoisonQueueWithFilter(poisonPublisher, cfg.PoisonQueueTopic, IsPermanentError)
		if err != nil {
			return nil, fmt.Errorf("create permanent error middleware: %w", err)
		}
		wmRouter.AddMiddleware(permanent)
	} else {
		wmRouter.AddMiddleware(r.dropPermanent)
	}

	return r, nil
}

// dropPermanent acknowledges messages that failed permanently.
func (r *Router) dropPermanent(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := h(msg)
		if err != nil && IsPermanentError(err) {
			r.logger.Error("Dropping message", err, watermill.LogFields{"message_uuid": msg.UUID})
			return nil, nil
		}
		return msgs, err
	}
}

// AddConsumerHandler registers a handler that publishes its own output.
func (r *Router) AddConsumerHandler(name, topic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.router.AddConsumerHandler(name, topic, subscriber, handler)
}

// Run blocks until ctx is cancelled or the router fails.
func (r *Router) Run(ctx context.Context) error {
	go func() {
		select {
		case <-r.router.Running():
			r.running.Store(true)
		case <-ctx.Done():
		}
	}()
	defer r.running.Store(false)
	return r.router.Run(ctx)
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}

// Close stops the router, waiting up to the close timeout for handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
