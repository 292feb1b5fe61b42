package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
)

type Service interface {
	Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context) ([]*model.Patient, error)
}

type service struct {
	repo   repository.PatientRepository
	logger *logger.Logger
}

func NewService(repo repository.PatientRepository, log *logger.Logger) Service {
	return &service{repo: repo, logger: log.With("patient")}
}

func (s *service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	p := &model.Patient{
		Name:                  strings.TrimSpace(req.Name),
		Email:                 strings.TrimSpace(req.Email),
		Role:                  model.PatientRole,
		ReasonForConsultation: strings.TrimSpace(req.ReasonForConsultation),
	}
	if p.Name == "" || p.Email == "" || p.ReasonForConsultation == "" {
		return nil, errors.NewValidation("name, email and reason_for_consultation are required")
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Patient created", "patient_id", p.ID.String())
	return p, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*model.Patient, error) {
	return s.repo.List(ctx)
}
