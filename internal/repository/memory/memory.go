// Package memory holds map-backed repositories. They keep insertion order
// and return the same NotFound errors as the postgres implementations, so
// service and handler tests can run without a database.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/pkg/errors"
)

// store is an insertion-ordered map.
type store[T any] struct {
	mu    sync.RWMutex
	order []uuid.UUID
	rows  map[uuid.UUID]T
}

func newStore[T any]() *store[T] {
	return &store[T]{rows: make(map[uuid.UUID]T)}
}

func (s *store[T]) put(id uuid.UUID, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		s.order = append(s.order, id)
	}
	s.rows[id] = v
}

func (s *store[T]) get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[id]
	return v, ok
}

func (s *store[T]) remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false
	}
	delete(s.rows, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *store[T]) filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []T{}
	for _, id := range s.order {
		if v := s.rows[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func all[T any](T) bool { return true }

func stamp(b *model.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

type PatientRepository struct {
	rows *store[model.Patient]
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{rows: newStore[model.Patient]()}
}

var _ repository.PatientRepository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(_ context.Context, p *model.Patient) error {
	for _, existing := range r.rows.filter(all[model.Patient]) {
		if strings.EqualFold(existing.Email, p.Email) {
			return errors.NewConflict("patient with this email already exists")
		}
	}
	stamp(&p.Base)
	p.Role = model.PatientRole
	r.rows.put(p.ID, *p)
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.rows.get(id)
	if !ok {
		return nil, errors.NewNotFound("patient", nil)
	}
	return &p, nil
}

func (r *PatientRepository) List(_ context.Context) ([]*model.Patient, error) {
	return ptrs(r.rows.filter(all[model.Patient])), nil
}

type ProviderRepository struct {
	rows *store[model.Provider]
}

func NewProviderRepository() *ProviderRepository {
	return &ProviderRepository{rows: newStore[model.Provider]()}
}

var _ repository.ProviderRepository = (*ProviderRepository)(nil)

func (r *ProviderRepository) Create(_ context.Context, p *model.Provider) error {
	if len(r.rows.filter(func(e model.Provider) bool { return e.NPINumber == p.NPINumber })) > 0 {
		return errors.ErrDuplicateNPI
	}
	stamp(&p.Base)
	r.rows.put(p.ID, *p)
	return nil
}

func (r *ProviderRepository) Get(_ context.Context, id uuid.UUID) (*model.Provider, error) {
	p, ok := r.rows.get(id)
	if !ok {
		return nil, errors.NewNotFound("provider", nil)
	}
	return &p, nil
}

func (r *ProviderRepository) first(keep func(model.Provider) bool) (*model.Provider, error) {
	found := r.rows.filter(keep)
	if len(found) == 0 {
		return nil, errors.NewNotFound("provider", nil)
	}
	return &found[0], nil
}

func (r *ProviderRepository) GetByNPI(_ context.Context, npi string) (*model.Provider, error) {
	return r.first(func(p model.Provider) bool { return p.NPINumber == npi })
}

func (r *ProviderRepository) GetByLicense(_ context.Context, licenseNumber string) (*model.Provider, error) {
	return r.first(func(p model.Provider) bool { return p.LicenseNumber == licenseNumber })
}

func (r *ProviderRepository) ListAll(_ context.Context) ([]*model.Provider, error) {
	return ptrs(r.rows.filter(all[model.Provider])), nil
}

func (r *ProviderRepository) ListVerified(_ context.Context) ([]*model.Provider, error) {
	return ptrs(r.rows.filter(func(p model.Provider) bool { return p.Verified })), nil
}

func (r *ProviderRepository) ListByTaxonomy(_ context.Context, taxonomy string) ([]*model.Provider, error) {
	return ptrs(r.rows.filter(func(p model.Provider) bool { return p.Taxonomy == taxonomy })), nil
}

func (r *ProviderRepository) ListVerifiedBySpecialization(_ context.Context, specialization string) ([]*model.Provider, error) {
	return ptrs(r.rows.filter(func(p model.Provider) bool {
		return p.Verified && strings.EqualFold(p.Specialization, specialization)
	})), nil
}

func (r *ProviderRepository) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	p, ok := r.rows.get(id)
	if !ok {
		return errors.NewNotFound("provider", nil)
	}
	p.Verified = verified
	p.UpdatedAt = time.Now().UTC()
	r.rows.put(id, p)
	return nil
}

type ConsultationRepository struct {
	rows *store[model.Consultation]
	// FailCreate, when set, is returned by Create.
	FailCreate error
}

func NewConsultationRepository() *ConsultationRepository {
	return &ConsultationRepository{rows: newStore[model.Consultation]()}
}

var _ repository.ConsultationRepository = (*ConsultationRepository)(nil)

func (r *ConsultationRepository) Create(_ context.Context, c *model.Consultation) error {
	if r.FailCreate != nil {
		return r.FailCreate
	}
	stamp(&c.Base)
	r.rows.put(c.ID, *c)
	return nil
}

func (r *ConsultationRepository) Get(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	c, ok := r.rows.get(id)
	if !ok {
		return nil, errors.NewNotFound("consultation", nil)
	}
	return &c, nil
}

func (r *ConsultationRepository) Update(_ context.Context, c *model.Consultation) error {
	if _, ok := r.rows.get(c.ID); !ok {
		return errors.NewNotFound("consultation", nil)
	}
	c.UpdatedAt = time.Now().UTC()
	r.rows.put(c.ID, *c)
	return nil
}

func (r *ConsultationRepository) Delete(_ context.Context, id uuid.UUID) error {
	if !r.rows.remove(id) {
		return errors.NewNotFound("consultation", nil)
	}
	return nil
}

func (r *ConsultationRepository) List(_ context.Context) ([]*model.Consultation, error) {
	return ptrs(r.rows.filter(all[model.Consultation])), nil
}

func (r *ConsultationRepository) ListByDate(_ context.Context, day model.Date) ([]*model.Consultation, error) {
	return ptrs(r.rows.filter(func(c model.Consultation) bool { return c.Date.Equal(day) })), nil
}

func (r *ConsultationRepository) ListByProviderAndDate(_ context.Context, providerID uuid.UUID, day model.Date) ([]*model.Consultation, error) {
	return ptrs(r.rows.filter(func(c model.Consultation) bool {
		return c.ProviderID == providerID && c.Date.Equal(day)
	})), nil
}

func (r *ConsultationRepository) ListBusyProviderIDs(_ context.Context, day model.Date, clock string) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, c := range r.rows.filter(func(c model.Consultation) bool {
		return c.Date.Equal(day) || c.Time == clock
	}) {
		if !seen[c.ProviderID] {
			seen[c.ProviderID] = true
			ids = append(ids, c.ProviderID)
		}
	}
	return ids, nil
}

type NotificationRepository struct {
	rows *store[model.Notification]
	// FailCreate, when set, is returned by Create and BulkCreate.
	FailCreate error
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{rows: newStore[model.Notification]()}
}

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(_ context.Context, n *model.Notification) error {
	if r.FailCreate != nil {
		return r.FailCreate
	}
	stamp(&n.Base)
	if n.Status == "" {
		n.Status = model.NotificationStatusUnread
	}
	r.rows.put(n.ID, *n)
	return nil
}

func (r *NotificationRepository) BulkCreate(ctx context.Context, batch []*model.Notification) error {
	if r.FailCreate != nil {
		return r.FailCreate
	}
	for _, n := range batch {
		if err := r.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotificationRepository) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	n, ok := r.rows.get(id)
	if !ok {
		return nil, errors.NewNotFound("notification", nil)
	}
	return &n, nil
}

func (r *NotificationRepository) List(_ context.Context) ([]*model.Notification, error) {
	return ptrs(r.rows.filter(all[model.Notification])), nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id uuid.UUID) error {
	n, ok := r.rows.get(id)
	if !ok {
		return errors.NewNotFound("notification", nil)
	}
	n.Status = model.NotificationStatusRead
	r.rows.put(id, n)
	return nil
}

func (r *NotificationRepository) Delete(_ context.Context, id uuid.UUID) error {
	if !r.rows.remove(id) {
		return errors.NewNotFound("notification", nil)
	}
	return nil
}

func ptrs[T any](rows []T) []*T {
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
