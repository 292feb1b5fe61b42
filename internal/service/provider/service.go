// Package provider manages the local provider directory and checks it
// against the NPPES registry.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/registry"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
)

const (
	unknown       = "Unknown"
	stateFound    = "License found in state"
	stateNotFound = "No license found in state"
)

// Registry is the subset of the NPPES client the directory needs.
type Registry interface {
	FetchProvider(ctx context.Context, npi string) (*registry.Record, error)
	SearchByOrganization(ctx context.Context, organization, state string) ([]registry.Record, error)
	SearchByTaxonomy(ctx context.Context, taxonomy, state string) ([]registry.Record, error)
}

type Service interface {
	AddProvider(ctx context.Context, req *model.CreateProviderRequest) (*model.Provider, error)
	Verify(ctx context.Context, npi string) (*model.VerificationResult, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*model.Provider, error)
	GetByNPI(ctx context.Context, npi string) (*model.Provider, error)
	ListByTaxonomy(ctx context.Context, taxonomy string) ([]*model.Provider, error)
	ListVerified(ctx context.Context) ([]*model.Provider, error)
	LookupByOrganizationAndState(ctx context.Context, organization, state string) ([]model.RegistryProvider, error)
	LookupByTaxonomyAndState(ctx context.Context, taxonomy, state string) ([]model.RegistryProvider, error)
	CheckLicenseInState(ctx context.Context, npi, state string) (*model.LicenseStateCheck, error)
}

type service struct {
	repo     repository.ProviderRepository
	registry Registry
	logger   *logger.Logger
}

func NewService(repo repository.ProviderRepository, reg Registry, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		registry: reg,
		logger:   log.With("provider"),
	}
}

func (s *service) AddProvider(ctx context.Context, req *model.CreateProviderRequest) (*model.Provider, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	expiry, err := model.ParseDate(req.LicenseExpiryDate)
	if err != nil {
		return nil, errors.NewValidation(err.Error())
	}

	p := &model.Provider{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Name:              req.Name,
		Email:             req.Email,
		Specialization:    req.Specialization,
		Taxonomy:          req.Taxonomy,
		NPINumber:         req.NPINumber,
		State:             req.State,
		LicenseNumber:     req.LicenseNumber,
		LicenseExpiryDate: expiry,
		Verified:          false,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Provider added", "provider_id", p.ID.String(), "npi", p.NPINumber)
	return p, nil
}

func validateCreate(req *model.CreateProviderRequest) error {
	fields := []string{
		req.FirstName, req.LastName, req.Name, req.Email, req.Specialization,
		req.Taxonomy, req.NPINumber, req.State, req.LicenseNumber, req.LicenseExpiryDate,
	}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return errors.NewValidation("all fields are required")
		}
	}
	return nil
}

func (s *service) Verify(ctx context.Context, npi string) (*model.VerificationResult, error) {
	p, err := s.repo.GetByNPI(ctx, npi)
	if err != nil {
		return nil, err
	}

	record, err := s.registry.FetchProvider(ctx, npi)
	if err != nil {
		return nil, err
	}

	result := &model.VerificationResult{
		NPINumber:         npi,
		ProviderFirstName: p.FirstName,
		ProviderLastName:  p.LastName,
		ProviderState:     p.State,
		NPPESFirstName:    record.Basic.FirstName,
		NPPESLastName:     record.Basic.LastName,
		NPPESState:        record.PrimaryState(),
		Status:            model.VerificationMismatch,
	}

	match := strings.EqualFold(p.FirstName, result.NPPESFirstName) &&
		strings.EqualFold(p.LastName, result.NPPESLastName) &&
		strings.EqualFold(p.State, result.NPPESState)
	if match {
		result.Status = model.VerificationVerified
	}

	if err := s.repo.SetVerified(ctx, p.ID, match); err != nil {
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}

	s.logger.Info("Provider verification finished", "npi", npi, "status", result.Status)
	return result, nil
}

func (s *service) GetByLicense(ctx context.Context, licenseNumber string) (*model.Provider, error) {
	return s.repo.GetByLicense(ctx, licenseNumber)
}

func (s *service) GetByNPI(ctx context.Context, npi string) (*model.Provider, error) {
	return s.repo.GetByNPI(ctx, npi)
}

func (s *service) ListByTaxonomy(ctx context.Context, taxonomy string) ([]*model.Provider, error) {
	return s.repo.ListByTaxonomy(ctx, taxonomy)
}

func (s *service) ListVerified(ctx context.Context) ([]*model.Provider, error) {
	return s.repo.ListVerified(ctx)
}

func (s *service) LookupByOrganizationAndState(ctx context.Context, organization, state string) ([]model.RegistryProvider, error) {
	records, err := s.registry.SearchByOrganization(ctx, organization, state)
	if err != nil {
		return nil, err
	}
	return summarize(records, func(b registry.Basic) string {
		if b.OrganizationName != "" {
			return b.OrganizationName
		}
		return strings.TrimSpace(b.FirstName + " " + b.LastName)
	}), nil
}

func (s *service) LookupByTaxonomyAndState(ctx context.Context, taxonomy, state string) ([]model.RegistryProvider, error) {
	records, err := s.registry.SearchByTaxonomy(ctx, taxonomy, state)
	if err != nil {
		return nil, err
	}
	return summarize(records, func(b registry.Basic) string {
		if b.OrganizationName != "" {
			return b.OrganizationName
		}
		return b.Name
	}), nil
}

func summarize(records []registry.Record, name func(registry.Basic) string) []model.RegistryProvider {
	out := make([]model.RegistryProvider, 0, len(records))
	for _, r := range records {
		n := name(r.Basic)
		if n == "" {
			n = unknown
		}
		address := map[string]string{}
		if len(r.Addresses) > 0 {
			address = addressFields(r.Addresses[0])
		}
		out = append(out, model.RegistryProvider{
			NPINumber: r.Number.String(),
			Name:      n,
			State:     r.PrimaryState(),
			Address:   address,
		})
	}
	return out
}

func addressFields(a registry.Address) map[string]string {
	fields := map[string]string{
		"address_1":        a.Address1,
		"city":             a.City,
		"state":            a.State,
		"postal_code":      a.PostalCode,
		"country_code":     a.CountryCode,
		"telephone_number": a.TelephoneNumber,
		"address_purpose":  a.AddressPurpose,
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

func (s *service) CheckLicenseInState(ctx context.Context, npi, state string) (*model.LicenseStateCheck, error) {
	p, err := s.repo.GetByNPI(ctx, npi)
	if err != nil {
		return nil, err
	}

	record, err := s.registry.FetchProvider(ctx, npi)
	if err != nil {
		return nil, err
	}
	if len(record.Addresses) == 0 {
		return nil, errors.NewNotFound("provider in NPPES registry", nil)
	}

	want := strings.ToUpper(state)
	found := false
	for _, a := range record.Addresses {
		if a.State == want {
			found = true
			break
		}
	}

	check := &model.LicenseStateCheck{
		NPINumber:       npi,
		ProviderName:    p.FirstName + " " + p.LastName,
		ProviderState:   p.State,
		LicensedInState: found,
		NPPESStateMatch: stateNotFound,
		Verified:        p.Verified,
	}
	if found {
		check.NPPESStateMatch = stateFound
	}
	return check, nil
}
