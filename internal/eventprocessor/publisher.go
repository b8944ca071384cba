// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/metrics"
)

// ErrCircuitOpen is returned while the results circuit breaker is open.
var ErrCircuitOpen = errors.New("results circuit breaker is open")

// ResultPublisher publishes result events through a circuit breaker.
type ResultPublisher struct {
	publisher message.Publisher
	topic     string
	cb        *gobreaker.CircuitBreaker[struct{}]
	closed    atomic.Bool
}

// NewResultPublisher wraps publisher. The breaker opens after maxFailures
// consecutive failures and half-opens after timeout.
func NewResultPublisher(publisher message.Publisher, topic string, maxFailures uint32, timeout time.Duration) *ResultPublisher {
	if maxFailures == 0 {
		maxFailures = DefaultConfig().BreakerMaxFailures
	}
	name := "results:" + topic
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	return &ResultPublisher{
		publisher: publisher,
		topic:     topic,
		cb:        gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Publish implements ResultSink.
func (p *ResultPublisher) Publish(ctx context.Context, ev *RerankResultEvent) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	payload, err := EncodeResult(ev)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataRequestID, ev.RequestID)
	msg.Metadata.Set(MetadataStatus, ev.Status())
	if ev.Outcome != nil && ev.Outcome.RunID != "" {
		msg.Metadata.Set(MetadataRunID, ev.Outcome.RunID)
	}

	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// State returns the breaker state name.
func (p *ResultPublisher) State() string {
	return p.cb.State().String()
}

// Close stops accepting results. The underlying publisher is owned by the caller.
func (p *ResultPublisher) Close() error {
	p.closed.Store(true)
	return nil
}
