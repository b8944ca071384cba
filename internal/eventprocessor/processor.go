// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/fairrank/internal/logging"
)

// Processor runs the event router as a supervised service. Each call to
// Serve builds a fresh router, so the supervisor may restart it.
type Processor struct {
	cfg        Config
	subscriber message.Subscriber
	publisher  message.Publisher
	results    *ResultPublisher
	handler    *Handler
	logger     watermill.LoggerAdapter

	mu     sync.Mutex
	router *Router
}

// NewProcessor creates a processor consuming from subscriber and
// publishing results and poisoned messages to publisher.
func NewProcessor(cfg Config, subscriber message.Subscriber, publisher message.Publisher, r Reranker) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if subscriber == nil || publisher == nil {
		return nil, fmt.Errorf("%w: subscriber and publisher are required", ErrInvalidConfig)
	}

	results := NewResultPublisher(publisher, cfg.ResultTopic, cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	return &Processor{
		cfg:        cfg,
		subscriber: subscriber,
		publisher:  publisher,
		results:    results,
		handler:    NewHandler(r, results, cfg.RatePerSecond, cfg.Burst),
		logger:     watermill.NewSlogLogger(logging.NewSlogLoggerWithComponent("eventprocessor")),
	}, nil
}

// Serve implements suture.Service.
func (p *Processor) Serve(ctx context.Context) error {
	router, err := NewRouter(p.cfg, p.publisher, p.logger)
	if err != nil {
		return err
	}
	router.AddConsumerHandler(HandlerName, p.cfg.RequestTopic, p.subscriber, p.handler.Handle)

	p.mu.Lock()
	p.router = router
	p.mu.Unlock()

	logging.Info().
		Str("request_topic", p.cfg.RequestTopic).
		Str("result_topic", p.cfg.ResultTopic).
		Msg("Event processor started")

	err = router.Run(ctx)
	if ctx.Err() != nil {
		logging.Info().Msg("Event processor stopped")
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return nil
}

// String implements fmt.Stringer for supervisor logging.
func (p *Processor) String() string {
	return "eventprocessor"
}

// Running returns a channel that closes once the current router runs, or
// nil before Serve is called.
func (p *Processor) Running() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.router == nil {
		return nil
	}
	return p.router.Running()
}

// Ping reports whether the router is processing messages.
func (p *Processor) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.router == nil || !p.router.IsRunning() {
		return ErrRouterNotRunning
	}
	if state := p.results.State(); state == "open" {
		return ErrCircuitOpen
	}
	return nil
}
