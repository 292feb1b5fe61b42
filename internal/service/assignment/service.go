// Package assignment picks the provider for a new consultation.
package assignment

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

type Service interface {
	// Assign returns the provider that should take a consultation for
	// patientID at (day, clock). It reads only.
	Assign(ctx context.Context, patientID uuid.UUID, day model.Date, clock string) (*model.Provider, error)
}

type service struct {
	patients      repository.PatientRepository
	providers     repository.ProviderRepository
	consultations repository.ConsultationRepository
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	patients repository.PatientRepository,
	providers repository.ProviderRepository,
	consultations repository.ConsultationRepository,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		patients:      patients,
		providers:     providers,
		consultations: consultations,
		logger:        log.With("assignment"),
		metrics:       m,
	}
}

func (s *service) Assign(ctx context.Context, patientID uuid.UUID, day model.Date, clock string) (*model.Provider, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.providers.ListVerifiedBySpecialization(ctx, patient.ReasonForConsultation)
	if err != nil {
		return nil, err
	}

	busy, err := s.consultations.ListBusyProviderIDs(ctx, day, clock)
	if err != nil {
		return nil, err
	}

	provider, err := Pick(candidates, busy)
	switch {
	case err == errors.ErrNoEligibleProvider:
		s.metrics.Assignments.WithLabelValues("no_eligible").Inc()
		s.logger.Warn("No verified provider for specialization", "specialization", patient.ReasonForConsultation)
		return nil, err
	case err == errors.ErrAllProvidersBusy:
		s.metrics.Assignments.WithLabelValues("all_busy").Inc()
		s.logger.Warn("All providers busy", "date", day.String(), "time", clock, "candidates", len(candidates))
		return nil, err
	case err != nil:
		return nil, err
	}

	s.metrics.Assignments.WithLabelValues("assigned").Inc()
	s.logger.Debug("Provider assigned", "provider_id", provider.ID.String(), "patient_id", patientID.String())
	return provider, nil
}

// Pick returns the first candidate not in busy. Candidates must already be
// in assignment order.
func Pick(candidates []*model.Provider, busy []uuid.UUID) (*model.Provider, error) {
	if len(candidates) == 0 {
		return nil, errors.ErrNoEligibleProvider
	}

	taken := make(map[uuid.UUID]struct{}, len(busy))
	for _, id := range busy {
		taken[id] = struct{}{}
	}

	for _, c := range candidates {
		if _, ok := taken[c.ID]; !ok {
			return c, nil
		}
	}
	return nil, errors.ErrAllProvidersBusy
}
