package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc/pool"

	"github.com/jwalitptl/consultation-api/internal/email"
	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/messaging"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

const defaultConcurrency = 8

// Notifier persists a notification for a provider and then delivers its
// email. Only persistence errors are returned.
type Notifier interface {
	Notify(ctx context.Context, provider *model.Provider, event Event) (*model.Notification, error)
	// NotifyAll persists every notification in one batch, then delivers
	// the emails in parallel.
	NotifyAll(ctx context.Context, targets []Target) ([]*model.Notification, error)
}

type Target struct {
	Provider *model.Provider
	Event    Event
}

type Service interface {
	Notifier
	List(ctx context.Context) ([]*model.Notification, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	BroadcastSystem(ctx context.Context, message string) ([]*model.Notification, error)
}

type Config struct {
	// Concurrency bounds parallel email dispatch in NotifyAll.
	Concurrency int
}

type service struct {
	repo      repository.NotificationRepository
	providers repository.ProviderRepository
	sender    email.Sender
	broker    messaging.Broker
	config    Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewService wires the fan-out. broker may be nil, in which case live
// publication is skipped.
func NewService(
	repo repository.NotificationRepository,
	providers repository.ProviderRepository,
	sender email.Sender,
	broker messaging.Broker,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &service{
		repo:      repo,
		providers: providers,
		sender:    sender,
		broker:    broker,
		config:    config,
		logger:    log.With("notification"),
		metrics:   m,
	}
}

func (s *service) Notify(ctx context.Context, provider *model.Provider, event Event) (*model.Notification, error) {
	n := &model.Notification{
		ProviderID: provider.ID,
		Type:       event.Kind(),
		Message:    event.Message(),
		Status:     model.NotificationStatusUnread,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	s.metrics.NotificationsPersisted.WithLabelValues(string(n.Type)).Inc()
	s.publish(ctx, n)

	s.deliver(ctx, event.Email(provider))
	return n, nil
}

func (s *service) NotifyAll(ctx context.Context, targets []Target) ([]*model.Notification, error) {
	if len(targets) == 0 {
		return []*model.Notification{}, nil
	}

	batch := make([]*model.Notification, 0, len(targets))
	for _, t := range targets {
		batch = append(batch, &model.Notification{
			ProviderID: t.Provider.ID,
			Type:       t.Event.Kind(),
			Message:    t.Event.Message(),
			Status:     model.NotificationStatusUnread,
		})
	}
	if err := s.repo.BulkCreate(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist notifications: %w", err)
	}
	for _, n := range batch {
		s.metrics.NotificationsPersisted.WithLabelValues(string(n.Type)).Inc()
		s.publish(ctx, n)
	}

	p := pool.New().WithMaxGoroutines(s.config.Concurrency)
	for _, t := range targets {
		msg := t.Event.Email(t.Provider)
		p.Go(func() {
			s.deliver(ctx, msg)
		})
	}
	p.Wait()

	return batch, nil
}

// deliver sends msg and swallows the error after recording it.
func (s *service) deliver(ctx context.Context, msg email.Message) {
	timer := prometheus.NewTimer(s.metrics.EmailLatency)
	err := s.sender.Send(ctx, msg)
	timer.ObserveDuration()

	if err != nil {
		s.metrics.EmailDeliveries.WithLabelValues("failed").Inc()
		s.logger.Error(err, "Failed to send email", "to", msg.To, "subject", msg.Subject)
		return
	}
	s.metrics.EmailDeliveries.WithLabelValues("sent").Inc()
	s.logger.Info("Email sent", "to", msg.To, "subject", msg.Subject)
}

func (s *service) publish(ctx context.Context, n *model.Notification) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, messaging.ChannelNotifications, n); err != nil {
		s.logger.Warn("Failed to publish notification", "notification_id", n.ID.String(), "error", err.Error())
	}
}

func (s *service) List(ctx context.Context) ([]*model.Notification, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Notification marked as read", "notification_id", id.String())
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	provider, err := s.providers.Get(ctx, n.ProviderID)
	if err != nil && !errors.HasCode(err, errors.ErrNotFound) {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if provider != nil {
		s.deliver(ctx, removalEmail(provider, n))
	} else {
		s.logger.Warn("Deleted notification for unknown provider", "notification_id", id.String())
	}
	return nil
}

func (s *service) BroadcastSystem(ctx context.Context, message string) ([]*model.Notification, error) {
	if message == "" {
		return nil, errors.NewValidation("message is required")
	}

	providers, err := s.providers.ListVerified(ctx)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, errors.NewConflict("no verified providers found")
	}

	targets := make([]Target, 0, len(providers))
	for _, p := range providers {
		targets = append(targets, Target{Provider: p, Event: SystemDowntime{Text: message}})
	}

	created, err := s.NotifyAll(ctx, targets)
	if err != nil {
		return nil, err
	}
	s.logger.Info("System downtime notification sent", "providers", len(providers))
	return created, nil
}
