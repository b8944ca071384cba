// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/fairrank/internal/config"
)

// Transport is a stub when built without the nats tag.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// NewTransport returns ErrNATSNotEnabled.
func NewTransport(config.NATSConfig, watermill.LoggerAdapter) (*Transport, error) {
	return nil, ErrNATSNotEnabled
}

// Ping returns ErrNATSNotEnabled.
func (t *Transport) Ping(context.Context) error {
	return ErrNATSNotEnabled
}

// Close is a no-op.
func (t *Transport) Close() error {
	return nil
}
