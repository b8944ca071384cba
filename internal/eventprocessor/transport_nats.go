// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

//go:build nats

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/fairrank/internal/config"
)

const (
	embeddedReadyTimeout = 30 * time.Second
	maxPayload           = 8 * 1024 * 1024
)

// Transport holds the JetStream publisher and subscriber and, when
// configured, the embedded server they connect to.
type Transport struct {
	Publisher  *wmNats.Publisher
	Subscriber *wmNats.Subscriber
	server     *server.Server
}

// NewTransport connects to NATS, starting an embedded JetStream server first
// when cfg.EmbeddedServer is set. Streams are provisioned per topic, so
// topic names must be valid stream names (no dots or wildcards).
func NewTransport(cfg config.NATSConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	t := &Transport{}
	url := cfg.URL

	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		t.server = ns
		url = ns.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("fairrank"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		t.shutdownServer()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	t.Publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     cfg.RouterCloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
				natsgo.AckWait(30 * time.Second),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		t.shutdownServer()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	t.Subscriber = sub

	return t, nil
}

func startEmbeddedServer(cfg config.NATSConfig) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName:         "fairrank",
		Host:               "127.0.0.1",
		Port:               server.RANDOM_PORT,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		MaxPayload:         maxPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}
	return ns, nil
}

// Ping reports whether the embedded server, if any, is running.
func (t *Transport) Ping(context.Context) error {
	if t.server != nil && !t.server.Running() {
		return errors.New("embedded NATS server is not running")
	}
	return nil
}

// Close closes the subscriber, the publisher and the embedded server.
func (t *Transport) Close() error {
	var errs []error
	if t.Subscriber != nil {
		errs = append(errs, t.Subscriber.Close())
	}
	if t.Publisher != nil {
		errs = append(errs, t.Publisher.Close())
	}
	t.shutdownServer()
	return errors.Join(errs...)
}

func (t *Transport) shutdownServer() {
	if t.server != nil {
		t.server.Shutdown()
		t.server.WaitForShutdown()
	}
}
