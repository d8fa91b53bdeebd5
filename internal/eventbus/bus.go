// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hanzoai/analytics/internal/config"
	"github.com/hanzoai/analytics/internal/logging"
	"github.com/hanzoai/analytics/internal/metrics"
	"github.com/hanzoai/analytics/internal/models"
)

// StreamName is the JetStream stream holding the event and poison topics.
const StreamName = "ANALYTICS"

var ErrBusClosed = errors.New("eventbus: closed")

// Bus publishes events and hands out subscribers for consumers.
type Bus struct {
	cfg    config.NATSConfig
	logger watermill.LoggerAdapter

	publisher message.Publisher
	// channel is set in in-process mode; it is both publisher and subscriber.
	channel *gochannel.GoChannel
	breaker *gobreaker.CircuitBreaker[any]

	mu          sync.Mutex
	closed      bool
	subscribers []message.Subscriber
}

// New creates the bus. With NATS disabled it runs in-process; otherwise it
// connects to url, ensures the stream exists and publishes to JetStream.
// url overrides cfg.URL when non-empty, which is how the embedded server's
// address is passed in.
func New(ctx context.Context, cfg config.NATSConfig, url string) (*Bus, error) {
	b := &Bus{
		cfg:    cfg,
		logger: logging.NewWatermillLogger("eventbus"),
	}
	b.breaker = newBreaker("eventbus-publish")

	if !cfg.Enabled {
		b.channel = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 1024,
		}, b.logger)
		b.publisher = b.channel
		logging.Info().Str("topic", cfg.Topic).Msg("Event bus running in-process")
		return b, nil
	}

	if url != "" {
		b.cfg.URL = url
	}
	if err := b.ensureStream(ctx); err != nil {
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         b.cfg.URL,
		NatsOptions: b.natsOptions("publisher"),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, b.logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	b.publisher = pub

	logging.Info().Str("url", b.cfg.URL).Str("topic", cfg.Topic).Msg("Event bus connected to NATS JetStream")
	return b, nil
}

// Topic returns the topic events are published on.
func (b *Bus) Topic() string { return b.cfg.Topic }

// PoisonTopic returns the topic failed messages are moved to.
func (b *Bus) PoisonTopic() string { return b.cfg.PoisonTopic }

// Publish encodes ev and publishes it on the event topic.
func (b *Bus) Publish(ctx context.Context, ev *models.RawEvent) error {
	msg, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	return b.PublishMessage(b.cfg.Topic, msg)
}

// PublishMessage publishes msg on topic through the circuit breaker.
func (b *Bus) PublishMessage(topic string, msg *message.Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	if b.channel == nil && msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.publisher.Publish(topic, msg)
	})
	if err != nil {
		metrics.BusPublishFailures.Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.BusPublished.Inc()
	return nil
}

// Publisher returns the bus as a watermill publisher, used by the poison
// queue middleware.
func (b *Bus) Publisher() message.Publisher { return b.publisher }

// Subscriber returns a subscriber for the named consumer. In-process every
// consumer shares the gochannel, which fans messages out. On NATS each
// consumer gets its own durable and queue group, so consumers fan out while
// collector replicas of the same consumer share the work.
func (b *Bus) Subscriber(consumer string) (message.Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if b.channel != nil {
		return b.channel, nil
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              b.cfg.URL,
		QueueGroupPrefix: b.cfg.QueueGroup + "-" + consumer,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     b.cfg.CloseTimeout,
		NatsOptions:      b.natsOptions(consumer),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(StreamName),
				natsgo.MaxDeliver(b.cfg.RetryCount + 2),
				natsgo.AckWait(30 * time.Second),
				natsgo.DeliverNew(),
			},
			DurablePrefix: b.cfg.DurablePrefix + "-" + consumer,
		},
	}, b.logger.With(watermill.LogFields{"consumer": consumer}))
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber %s: %w", consumer, err)
	}
	b.subscribers = append(b.subscribers, sub)
	return sub, nil
}

// Close closes the publisher and every subscriber handed out.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, sub := range b.subscribers {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b *Bus) natsOptions(name string) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("hanzo-analytics-" + name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				b.logger.Error("NATS disconnected", err, watermill.LogFields{"client": name})
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			b.logger.Info("NATS reconnected", watermill.LogFields{"client": name, "url": nc.ConnectedUrl()})
		}),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}
