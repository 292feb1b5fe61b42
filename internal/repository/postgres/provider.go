package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/pkg/errors"
)

const providerColumns = `id, first_name, last_name, name, email, specialization, taxonomy,
	npi_number, state, license_number, license_expiry_date, verified, created_at, updated_at`

type providerRepository struct {
	*BaseRepository
}

func NewProviderRepository(base *BaseRepository) repository.ProviderRepository {
	return &providerRepository{BaseRepository: base}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (
			id, first_name, last_name, name, email, specialization, taxonomy,
			npi_number, state, license_number, license_expiry_date, verified,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if provider.ID == uuid.Nil {
		provider.ID = uuid.New()
	}
	provider.CreatedAt = time.Now().UTC()
	provider.UpdatedAt = provider.CreatedAt

	_, err := r.GetDB().ExecContext(ctx, query,
		provider.ID,
		provider.FirstName,
		provider.LastName,
		provider.Name,
		provider.Email,
		provider.Specialization,
		provider.Taxonomy,
		provider.NPINumber,
		provider.State,
		provider.LicenseNumber,
		provider.LicenseExpiryDate,
		provider.Verified,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrDuplicateNPI
		}
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *providerRepository) GetByNPI(ctx context.Context, npi string) (*model.Provider, error) {
	return r.getOne(ctx, `npi_number = $1`, npi)
}

func (r *providerRepository) GetByLicense(ctx context.Context, licenseNumber string) (*model.Provider, error) {
	return r.getOne(ctx, `license_number = $1`, licenseNumber)
}

func (r *providerRepository) getOne(ctx context.Context, where string, arg interface{}) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE ` + where + ` LIMIT 1`
	var provider model.Provider
	if err := r.GetDB().GetContext(ctx, &provider, query, arg); err != nil {
		return nil, lookupErr(err, "provider")
	}
	return &provider, nil
}

func (r *providerRepository) ListAll(ctx context.Context) ([]*model.Provider, error) {
	return r.list(ctx, ``)
}

func (r *providerRepository) ListVerified(ctx context.Context) ([]*model.Provider, error) {
	return r.list(ctx, `WHERE verified = TRUE`)
}

func (r *providerRepository) ListByTaxonomy(ctx context.Context, taxonomy string) ([]*model.Provider, error) {
	return r.list(ctx, `WHERE taxonomy = $1`, taxonomy)
}

func (r *providerRepository) ListVerifiedBySpecialization(ctx context.Context, specialization string) ([]*model.Provider, error) {
	return r.list(ctx, `WHERE verified = TRUE AND LOWER(specialization) = LOWER($1)`, specialization)
}

func (r *providerRepository) list(ctx context.Context, where string, args ...interface{}) ([]*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ` + where + ` ORDER BY created_at, id`
	providers := []*model.Provider{}
	if err := r.GetDB().SelectContext(ctx, &providers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (r *providerRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE providers SET verified = $1, updated_at = $2 WHERE id = $3`
	result, err := r.GetDB().ExecContext(ctx, query, verified, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update provider verification: %w", err)
	}
	return requireRow(result, "provider")
}
