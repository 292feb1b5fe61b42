package email

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/messaging"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
	"github.com/jwalitptl/consultation-api/pkg/worker"
)

// QueuedSender hands messages to the broker; a Relay in the worker process
// performs the actual delivery.
type QueuedSender struct {
	broker messaging.Broker
}

func NewQueuedSender(broker messaging.Broker) *QueuedSender {
	return &QueuedSender{broker: broker}
}

func (s *QueuedSender) Send(ctx context.Context, msg Message) error {
	if err := s.broker.Publish(ctx, messaging.ChannelEmailOutbound, msg); err != nil {
		return fmt.Errorf("failed to queue email to %s: %w", msg.To, err)
	}
	return nil
}

type RelayConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
}

// Relay drains the outbound email channel into a delivery backend.
type Relay struct {
	broker  messaging.Broker
	backend Sender
	config  RelayConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRelay(broker messaging.Broker, backend Sender, config RelayConfig, log *logger.Logger, m *metrics.Metrics) *Relay {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	return &Relay{
		broker:  broker,
		backend: backend,
		config:  config,
		logger:  log.With("email-relay"),
		metrics: m,
	}
}

// Start blocks until ctx is cancelled or the subscription fails.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("Starting email relay", "channel", messaging.ChannelEmailOutbound)
	return messaging.Consume(ctx, r.broker, messaging.ChannelEmailOutbound, func(payload []byte) error {
		return r.handle(ctx, payload)
	}, func(err error) {
		r.logger.Error(err, "Failed to relay email")
	})
}

func (r *Relay) handle(ctx context.Context, payload []byte) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.metrics.RelayedEmails.WithLabelValues("invalid").Inc()
		return fmt.Errorf("failed to decode queued email: %w", err)
	}

	err := worker.Retry(ctx, r.config.RetryAttempts, r.config.RetryDelay, func() error {
		return r.backend.Send(ctx, msg)
	})
	if err != nil {
		r.metrics.RelayedEmails.WithLabelValues("failed").Inc()
		return err
	}
	r.metrics.RelayedEmails.WithLabelValues("sent").Inc()
	return nil
}
