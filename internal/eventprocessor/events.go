// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fairrank/internal/engine"
)

// Message metadata keys.
const (
	MetadataRequestID = "request_id"
	MetadataRunID     = "run_id"
	MetadataStatus    = "status"
)

// Result status values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// RerankRequestEvent is the payload on the request topic. It is an
// engine.Request whose request_id is required.
type RerankRequestEvent struct {
	engine.Request
}

// EventError describes a request the engine rejected.
type EventError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RerankResultEvent is the payload on the result topic. Exactly one of
// Outcome and Error is set.
type RerankResultEvent struct {
	RequestID   string          `json:"request_id"`
	Outcome     *engine.Outcome `json:"outcome,omitempty"`
	Error       *EventError     `json:"error,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// Status returns ResultOK or ResultError.
func (e *RerankResultEvent) Status() string {
	if e.Error != nil {
		return ResultError
	}
	return ResultOK
}

// DecodeRequest parses a request payload. Malformed payloads and a missing
// request ID are permanent errors.
func DecodeRequest(payload []byte) (*RerankRequestEvent, error) {
	var ev RerankRequestEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, NewPermanentError("malformed rerank request", err)
	}
	if ev.RequestID == "" {
		return nil, NewPermanentError("invalid rerank request", errors.New("request_id is required"))
	}
	ev.Source = "event"
	return &ev, nil
}

// EncodeResult serializes a result event.
func EncodeResult(ev *RerankResultEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeResult parses a result payload.
func DecodeResult(payload []byte) (*RerankResultEvent, error) {
	var ev RerankResultEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
