// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/zeebo/xxh3"

	"github.com/tomtom215/fairrank/internal/cache"
)

// PayloadKey identifies a message by the xxh3 hash of its payload. JetStream
// redeliveries carry new UUIDs, so the UUID cannot be used.
func PayloadKey(msg *message.Message) (string, error) {
	return strconv.FormatUint(xxh3.Hash(msg.Payload), 16), nil
}

// Deduplicator drops payloads seen within the TTL. Keys of messages whose
// handling failed are forgotten so redeliveries are processed again.
type Deduplicator struct {
	seen *cache.LRU[struct{}]
}

// NewDeduplicator creates a deduplicator holding up to capacity keys.
func NewDeduplicator(capacity int, ttl time.Duration) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultConfig().DeduplicationCapacity
	}
	return &Deduplicator{seen: cache.NewLRU[struct{}](capacity, ttl)}
}

// IsDuplicate implements middleware.ExpiringKeyRepository.
func (d *Deduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	return d.seen.IsDuplicate(key), nil
}

// Len returns the number of remembered keys.
func (d *Deduplicator) Len() int {
	return d.seen.Len()
}

// Middleware returns the router middleware.
func (d *Deduplicator) Middleware(h message.HandlerFunc) message.HandlerFunc {
	dedup := middleware.Deduplicator{
		KeyFactory: PayloadKey,
		Repository: d,
	}
	next := dedup.Middleware(h)
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := next(msg)
		if err != nil {
			key, _ := PayloadKey(msg)
			d.seen.Remove(key)
		}
		return msgs, err
	}
}
