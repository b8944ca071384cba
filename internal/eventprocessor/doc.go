// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package eventprocessor serves rerank requests over a message bus.
//
// A Watermill Router consumes RerankRequestEvent messages from the request
// topic, runs them through the engine and publishes RerankResultEvent
// messages to the result topic.
//
// Middleware (outer to inner):
//   - Recoverer: panics become errors
//   - PoisonQueue: messages still failing after retries go to the poison topic
//   - Retry: exponential backoff for transient failures
//   - PoisonQueueWithFilter: PermanentError skips retries
//   - Deduplicator: redelivered payloads are dropped, keyed by an xxh3 hash
//
// The handler is throttled with a token bucket and publishes results
// through a circuit breaker.
//
// The router works with any message.Publisher and message.Subscriber. The
// NATS JetStream transport and embedded server are compiled with the nats
// build tag:
//
//	go build -tags nats ./cmd/server
//
// Without the tag NewTransport returns ErrNATSNotEnabled.
package eventprocessor
