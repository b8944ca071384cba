// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/time/rate"

	"github.com/tomtom215/fairrank/internal/engine"
	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/metrics"
)

// HandlerName is the router handler name, also used as the metrics label.
const HandlerName = "rerank"

// Error codes carried by RerankResultEvent.Error.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// Reranker runs rerank requests. Implemented by *engine.Engine.
type Reranker interface {
	Rerank(ctx context.Context, req engine.Request) (*engine.Outcome, error)
}

// ResultSink receives result events.
type ResultSink interface {
	Publish(ctx context.Context, ev *RerankResultEvent) error
}

// Handler turns request messages into result events.
type Handler struct {
	reranker Reranker
	results  ResultSink
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewHandler creates a handler. ratePerSecond <= 0 disables throttling.
func NewHandler(r Reranker, results ResultSink, ratePerSecond float64, burst int) *Handler {
	h := &Handler{reranker: r, results: results, now: time.Now}
	if ratePerSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return h
}

// Handle implements message.NoPublishHandlerFunc.
//
// Requests the engine rejects produce an error result and are acknowledged.
// Malformed payloads are permanent errors. Anything else is returned so the
// router retries it.
func (h *Handler) Handle(msg *message.Message) error {
	start := time.Now()
	err := h.handle(msg)
	metrics.RecordEventMessage(HandlerName, time.Since(start), err)
	return err
}

func (h *Handler) handle(msg *message.Message) error {
	ctx := msg.Context()
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	ev, err := DecodeRequest(msg.Payload)
	if err != nil {
		return err
	}

	ctx = logging.ContextWithRequestID(ctx, ev.RequestID)
	ctx = logging.ContextWithCorrelationID(ctx, msg.UUID)

	result := &RerankResultEvent{RequestID: ev.RequestID}
	outcome, err := h.reranker.Rerank(ctx, ev.Request)
	switch {
	case err == nil:
		result.Outcome = outcome
	case clientError(err) != "":
		logging.Ctx(ctx).Warn().Err(err).Msg("Rejected rerank request")
		result.Error = &EventError{Code: clientError(err), Message: err.Error()}
	default:
		return fmt.Errorf("rerank request %s: %w", ev.RequestID, err)
	}
	result.ProcessedAt = h.now().UTC()

	if err := h.results.Publish(ctx, result); err != nil {
		return fmt.Errorf("publish result %s: %w", ev.RequestID, err)
	}
	return nil
}

// clientError returns the result code for errors caused by the request
// itself, or "" for errors worth retrying.
func clientError(err error) string {
	switch {
	case errors.Is(err, engine.ErrTooManyItems), errors.Is(err, engine.ErrTooManyGroups):
		return CodePayloadTooLarge
	case errors.Is(err, engine.ErrInvalidRequest):
		return CodeValidation
	default:
		return ""
	}
}
