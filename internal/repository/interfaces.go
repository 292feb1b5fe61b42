package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
)

// All repository interfaces in one file. Get-style lookups return a
// NotFound *errors.AppError when the row is absent.
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		List(ctx context.Context) ([]*model.Patient, error)
	}

	ProviderRepository interface {
		Create(ctx context.Context, provider *model.Provider) error
		Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
		GetByNPI(ctx context.Context, npi string) (*model.Provider, error)
		GetByLicense(ctx context.Context, licenseNumber string) (*model.Provider, error)
		ListAll(ctx context.Context) ([]*model.Provider, error)
		ListVerified(ctx context.Context) ([]*model.Provider, error)
		ListByTaxonomy(ctx context.Context, taxonomy string) ([]*model.Provider, error)
		// ListVerifiedBySpecialization matches case-insensitively and orders
		// by insertion (created_at, then id).
		ListVerifiedBySpecialization(ctx context.Context, specialization string) ([]*model.Provider, error)
		SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	}

	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		Update(ctx context.Context, consultation *model.Consultation) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Consultation, error)
		ListByDate(ctx context.Context, day model.Date) ([]*model.Consultation, error)
		ListByProviderAndDate(ctx context.Context, providerID uuid.UUID, day model.Date) ([]*model.Consultation, error)
		// ListBusyProviderIDs returns providers with any consultation on day
		// OR at clock, on any day.
		ListBusyProviderIDs(ctx context.Context, day model.Date, clock string) ([]uuid.UUID, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		BulkCreate(ctx context.Context, notifications []*model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		List(ctx context.Context) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id uuid.UUID) error
		Delete(ctx context.Context, id uuid.UUID) error
	}
)
