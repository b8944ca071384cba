// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/fairrank/internal/config"
	"github.com/tomtom215/fairrank/internal/engine"
)

type fakeReranker struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReranker) Rerank(_ context.Context, req engine.Request) (*engine.Outcome, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Outcome{
		RunID:     "run-" + req.RequestID,
		Algorithm: "detconsort",
		Requested: len(req.Items),
		Returned:  len(req.Items),
	}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []*RerankResultEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, ev *RerankResultEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

type failingPublisher struct {
	calls atomic.Int32
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls.Add(1)
	return errors.New("connection refused")
}

func (p *failingPublisher) Close() error { return nil }

func requestPayload(id string) []byte {
	return []byte(fmt.Sprintf(`{"request_id":%q,"items":[{"id":"a","group":0,"score":1}],"distribution":[1]}`, id))
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		permanent bool
	}{
		{"valid", `{"request_id":"r1","items":[],"preset":"binary-even"}`, false},
		{"malformed", `{"request_id":`, true},
		{"missing request id", `{"items":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeRequest([]byte(tt.payload))
			if tt.permanent {
				if !IsPermanentError(err) {
					t.Fatalf("expected permanent error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.RequestID != "r1" || ev.Source != "event" || ev.Preset != "binary-even" {
				t.Errorf("unexpected event: %+v", ev)
			}
		})
	}
}

func TestPermanentError(t *testing.T) {
	cause := errors.New("bad json")
	err := NewPermanentError("malformed", cause)

	if err.Error() != "malformed: bad json" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	if !IsPermanentError(fmt.Errorf("handler: %w", err)) {
		t.Error("expected wrapped permanent error to be detected")
	}
	if IsPermanentError(cause) {
		t.Error("plain error reported as permanent")
	}
	if NewPermanentError("only message", nil).Error() != "only message" {
		t.Error("unexpected message without cause")
	}
}

func TestConfig(t *testing.T) {
	n := config.NATSConfig{
		RequestTopic:             "req",
		ResultTopic:              "res",
		RouterRetryCount:         5,
		RouterPoisonQueueEnabled: false,
		RouterPoisonQueueTopic:   "poison",
		HandlerRatePerSecond:     10,
		BreakerMaxFailures:       7,
	}
	cfg := ConfigFrom(n)
	if cfg.RetryMaxRetries != 5 || cfg.RatePerSecond != 10 || cfg.BreakerMaxFailures != 7 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.PoisonQueueTopic != "" {
		t.Errorf("poison queue should be disabled, got %q", cfg.PoisonQueueTopic)
	}
	if cfg.Burst != DefaultConfig().Burst {
		t.Errorf("Burst = %d, want default", cfg.Burst)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	bad := []Config{
		{RequestTopic: "", ResultTopic: "res"},
		{RequestTopic: "same", ResultTopic: "same"},
		{RequestTopic: "req", ResultTopic: "res", PoisonQueueTopic: "req"},
		{RequestTopic: "req", ResultTopic: "res", RetryMaxRetries: -1},
		{RequestTopic: "req", ResultTopic: "res", RatePerSecond: -1},
	}
	for i, c := range bad {
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(10, time.Minute)
	ctx := context.Background()

	if dup, _ := d.IsDuplicate(ctx, "k"); dup {
		t.Error("first sighting reported as duplicate")
	}
	if dup, _ := d.IsDuplicate(ctx, "k"); !dup {
		t.Error("second sighting not reported as duplicate")
	}

	var calls int
	failing := d.Middleware(func(*message.Message) ([]*message.Message, error) {
		calls++
		return nil, errors.New("transient")
	})
	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	if _, err := failing(msg); err == nil {
		t.Fatal("expected error")
	}
	// The failed key is forgotten, so a redelivery with a new UUID runs again.
	redelivered := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	if _, err := failing(redelivered); err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}

	ok := d.Middleware(func(*message.Message) ([]*message.Message, error) {
		calls++
		return nil, nil
	})
	for i := 0; i < 3; i++ {
		if _, err := ok(message.NewMessage(watermill.NewUUID(), []byte("other"))); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
}

func TestPayloadKey(t *testing.T) {
	a, _ := PayloadKey(message.NewMessage("1", []byte("x")))
	b, _ := PayloadKey(message.NewMessage("2", []byte("x")))
	c, _ := PayloadKey(message.NewMessage("1", []byte("y")))
	if a != b {
		t.Error("same payload should give the same key")
	}
	if a == c {
		t.Error("different payloads should give different keys")
	}
}

func TestHandler(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		payload    []byte
		rerankErr  error
		sinkErr    error
		wantErr    bool
		permanent  bool
		wantCode   string
		wantResult bool
	}{
		{name: "success", payload: requestPayload("r1"), wantResult: true},
		{name: "invalid request", payload: requestPayload("r2"), rerankErr: fmt.Errorf("%w: bad", engine.ErrInvalidRequest), wantResult: true, wantCode: CodeValidation},
		{name: "too many items", payload: requestPayload("r3"), rerankErr: fmt.Errorf("%w: 20 items", engine.ErrTooManyItems), wantResult: true, wantCode: CodePayloadTooLarge},
		{name: "too many groups", payload: requestPayload("r4"), rerankErr: engine.ErrTooManyGroups, wantResult: true, wantCode: CodePayloadTooLarge},
		{name: "transient engine error", payload: requestPayload("r5"), rerankErr: context.DeadlineExceeded, wantErr: true},
		{name: "malformed", payload: []byte("{"), wantErr: true, permanent: true},
		{name: "publish failure", payload: requestPayload("r6"), sinkErr: errors.New("down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{err: tt.sinkErr}
			h := NewHandler(&fakeReranker{err: tt.rerankErr}, sink, 0, 0)
			h.now = func() time.Time { return fixed }

			err := h.Handle(message.NewMessage(watermill.NewUUID(), tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if IsPermanentError(err) != tt.permanent {
				t.Errorf("permanent = %v, want %v", IsPermanentError(err), tt.permanent)
			}
			if !tt.wantResult {
				if len(sink.events) != 0 {
					t.Errorf("unexpected results: %d", len(sink.events))
				}
				return
			}
			if len(sink.events) != 1 {
				t.Fatalf("results = %d, want 1", len(sink.events))
			}
			ev := sink.events[0]
			if !ev.ProcessedAt.Equal(fixed) {
				t.Errorf("ProcessedAt = %v", ev.ProcessedAt)
			}
			if tt.wantCode == "" {
				if ev.Outcome == nil || ev.Error != nil || ev.Status() != ResultOK {
					t.Errorf("expected outcome, got %+v", ev)
				}
				return
			}
			if ev.Error == nil || ev.Error.Code != tt.wantCode || ev.Status() != ResultError {
				t.Errorf("expected error %s, got %+v", tt.wantCode, ev)
			}
		})
	}
}

func TestHandler_RateLimitCancelled(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(&fakeReranker{}, sink, 0.001, 1)

	first := message.NewMessage(watermill.NewUUID(), requestPayload("a"))
	if err := h.Handle(first); err != nil {
		t.Fatalf("first message: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	second := message.NewMessage(watermill.NewUUID(), requestPayload("b"))
	second.SetContext(ctx)
	if err := h.Handle(second); err == nil {
		t.Fatal("expected rate limiter error")
	}
	if len(sink.events) != 1 {
		t.Errorf("results = %d, want 1", len(sink.events))
	}
}

func TestResultPublisher_Breaker(t *testing.T) {
	pub := &failingPublisher{}
	rp := NewResultPublisher(pub, "results", 2, time.Minute)
	ev := &RerankResultEvent{RequestID: "r1"}

	for i := 0; i < 2; i++ {
		if err := rp.Publish(context.Background(), ev); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected publish error, got %v", i, err)
		}
	}
	if rp.State() != "open" {
		t.Fatalf("State() = %q, want open", rp.State())
	}
	if err := rp.Publish(context.Background(), ev); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if pub.calls.Load() != 2 {
		t.Errorf("publisher calls = %d, want 2", pub.calls.Load())
	}

	_ = rp.Close()
	if err := rp.Publish(context.Background(), ev); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("expected ErrPublisherClosed, got %v", err)
	}
}

func TestResultPublisher_Metadata(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer pubSub.Close()

	rp := NewResultPublisher(pubSub, "results", 0, time.Minute)
	ev := &RerankResultEvent{RequestID: "r1", Outcome: &engine.Outcome{RunID: "run-1"}}
	if err := rp.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	msgs, err := pubSub.Subscribe(context.Background(), "results")
	if err != nil {
		t.Fatal(err)
	}
	msg := receive(t, msgs)
	if msg.Metadata.Get(MetadataRequestID) != "r1" ||
		msg.Metadata.Get(MetadataRunID) != "run-1" ||
		msg.Metadata.Get(MetadataStatus) != ResultOK {
		t.Errorf("unexpected metadata: %v", msg.Metadata)
	}
}

func receive(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-msgs:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func startProcessor(t *testing.T, cfg Config, r Reranker) (*gochannel.GoChannel, *Processor) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})

	p, err := NewProcessor(cfg, pubSub, pubSub, r)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("processor did not stop")
		}
		_ = pubSub.Close()
	})

	deadline := time.Now().Add(5 * time.Second)
	for p.Ping(context.Background()) != nil {
		if time.Now().After(deadline) {
			t.Fatal("processor did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return pubSub, p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RequestTopic = "requests"
	cfg.ResultTopic = "results"
	cfg.PoisonQueueTopic = "poison"
	cfg.RetryMaxRetries = 1
	cfg.RetryInitialInterval = time.Millisecond
	cfg.CloseTimeout = time.Second
	return cfg
}

func TestProcessor_EndToEnd(t *testing.T) {
	r := &fakeReranker{}
	pubSub, _ := startProcessor(t, testConfig(), r)

	results, err := pubSub.Subscribe(context.Background(), "results")
	if err != nil {
		t.Fatal(err)
	}

	publish := func(payload []byte) {
		if err := pubSub.Publish("requests", message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			t.Fatal(err)
		}
	}

	publish(requestPayload("r1"))
	ev, err := DecodeResult(receive(t, results).Payload)
	if err != nil {
		t.Fatal(err)
	}
	if ev.RequestID != "r1" || ev.Outcome == nil || ev.Outcome.RunID != "run-r1" {
		t.Errorf("unexpected result: %+v", ev)
	}

	// A redelivered payload is dropped; the next distinct request goes through.
	publish(requestPayload("r1"))
	publish(requestPayload("r2"))
	ev, err = DecodeResult(receive(t, results).Payload)
	if err != nil {
		t.Fatal(err)
	}
	if ev.RequestID != "r2" {
		t.Errorf("RequestID = %q, want r2", ev.RequestID)
	}
	if r.calls.Load() != 2 {
		t.Errorf("rerank calls = %d, want 2", r.calls.Load())
	}
}

func TestProcessor_PoisonQueue(t *testing.T) {
	r := &fakeReranker{err: errors.New("engine unavailable")}
	pubSub, _ := startProcessor(t, testConfig(), r)

	poison, err := pubSub.Subscribe(context.Background(), "poison")
	if err != nil {
		t.Fatal(err)
	}

	malformed := []byte("not json")
	if err := pubSub.Publish("requests", message.NewMessage(watermill.NewUUID(), malformed)); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, poison); string(got.Payload) != string(malformed) {
		t.Errorf("poisoned payload = %q", got.Payload)
	}
	if r.calls.Load() != 0 {
		t.Errorf("malformed payload reached the engine")
	}

	// Transient failures are retried, then poisoned.
	if err := pubSub.Publish("requests", message.NewMessage(watermill.NewUUID(), requestPayload("r1"))); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, poison); string(got.Payload) != string(requestPayload("r1")) {
		t.Errorf("poisoned payload = %q", got.Payload)
	}
	if r.calls.Load() != 2 {
		t.Errorf("rerank calls = %d, want 2 (one retry)", r.calls.Load())
	}
}

func TestProcessor_InvalidConfig(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	if _, err := NewProcessor(Config{}, pubSub, pubSub, &fakeReranker{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewProcessor(testConfig(), nil, pubSub, &fakeReranker{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	p, err := NewProcessor(testConfig(), pubSub, pubSub, &fakeReranker{})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Ping(context.Background()); !errors.Is(err, ErrRouterNotRunning) {
		t.Errorf("Ping() before Serve = %v", err)
	}
	if p.String() != "eventprocessor" {
		t.Errorf("String() = %q", p.String())
	}
}
