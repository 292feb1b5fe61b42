// Package license flags providers whose medical license has expired.
package license

import (
	"context"
	"time"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/internal/service/notification"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

const (
	msgNoneExpired = "No providers with expired licenses found."
	msgCompleted   = "License expiry check completed."
)

type Service interface {
	// Sweep notifies every provider whose license expired before today.
	Sweep(ctx context.Context) (*model.LicenseSweepReport, error)
}

type service struct {
	providers repository.ProviderRepository
	notifier  notification.Notifier
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(providers repository.ProviderRepository, notifier notification.Notifier, log *logger.Logger, m *metrics.Metrics) Service {
	return &service{
		providers: providers,
		notifier:  notifier,
		logger:    log.With("license"),
		metrics:   m,
		now:       time.Now,
	}
}

func (s *service) Sweep(ctx context.Context) (*model.LicenseSweepReport, error) {
	providers, err := s.providers.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	expired := Expired(providers, model.Day(s.now()))
	s.metrics.ExpiredLicenses.Set(float64(len(expired)))
	if len(expired) == 0 {
		s.logger.Info("No expired licenses found", "providers", len(providers))
		return &model.LicenseSweepReport{Message: msgNoneExpired, ExpiredProviders: []model.ExpiredLicense{}}, nil
	}

	targets := make([]notification.Target, 0, len(expired))
	report := &model.LicenseSweepReport{Message: msgCompleted}
	for _, p := range expired {
		targets = append(targets, notification.Target{
			Provider: p,
			Event:    notification.LicenseExpired{LicenseNumber: p.LicenseNumber, ExpiryDate: p.LicenseExpiryDate},
		})
		report.ExpiredProviders = append(report.ExpiredProviders, model.ExpiredLicense{
			ProviderID:        p.ID,
			ProviderName:      p.Name,
			Email:             p.Email,
			LicenseExpiryDate: p.LicenseExpiryDate,
		})
	}

	if _, err := s.notifier.NotifyAll(ctx, targets); err != nil {
		s.logger.Error(err, "Failed to record license expiry notifications", "expired", len(expired))
		return nil, err
	}

	s.logger.Info("License expiry check completed", "expired", len(expired))
	return report, nil
}

// Expired returns providers whose license expiry day is strictly before today.
func Expired(providers []*model.Provider, today model.Date) []*model.Provider {
	var out []*model.Provider
	for _, p := range providers {
		if model.Day(p.LicenseExpiryDate.Time).Before(today) {
			out = append(out, p)
		}
	}
	return out
}
