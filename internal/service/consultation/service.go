// Package consultation drives a consultation through its lifecycle and
// tells the assigned provider about every transition.
package consultation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
	"github.com/jwalitptl/consultation-api/internal/service/assignment"
	"github.com/jwalitptl/consultation-api/internal/service/notification"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
	"github.com/jwalitptl/consultation-api/pkg/slotlock"
)

const unknownPatient = "Unknown Patient"

type Service interface {
	Book(ctx context.Context, patientID uuid.UUID, day model.Date, clock string, priority model.Priority) (*model.Consultation, error)
	Reschedule(ctx context.Context, id uuid.UUID, day model.Date, clock string, priority model.Priority) (*model.Consultation, error)
	MarkMissed(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	Complete(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Summarize(ctx context.Context, providerID uuid.UUID, day model.Date) (*model.ConsultationSummary, error)
	SendUpcomingReminders(ctx context.Context) (*model.ReminderResult, error)
	List(ctx context.Context) ([]*model.Consultation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
}

type Option func(*service)

// WithClock overrides the source of "today" for the reminder sweep.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	consultations repository.ConsultationRepository
	patients      repository.PatientRepository
	providers     repository.ProviderRepository
	assigner      assignment.Service
	notifier      notification.Notifier
	locker        slotlock.Locker
	logger        *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewService(
	consultations repository.ConsultationRepository,
	patients repository.PatientRepository,
	providers repository.ProviderRepository,
	assigner assignment.Service,
	notifier notification.Notifier,
	locker slotlock.Locker,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ...Option,
) Service {
	s := &service{
		consultations: consultations,
		patients:      patients,
		providers:     providers,
		assigner:      assigner,
		notifier:      notifier,
		locker:        locker,
		logger:        log.With("consultation"),
		metrics:       m,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Book(ctx context.Context, patientID uuid.UUID, day model.Date, clock string, priority model.Priority) (*model.Consultation, error) {
	s.logger.Info("Booking consultation", "patient_id", patientID.String(), "date", day.String(), "time", clock)

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	consultation, provider, err := s.reserve(ctx, patientID, day, clock, priority)
	if err != nil {
		s.logger.Error(err, "Failed to book consultation", "patient_id", patientID.String())
		return nil, err
	}

	if _, err := s.notifier.Notify(ctx, provider, notification.ConsultationBooked{
		PatientName: patient.Name,
		Date:        consultation.Date,
		Time:        consultation.Time,
		Priority:    consultation.Priority,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Consultation booked", "consultation_id", consultation.ID.String(), "provider_id", provider.ID.String())
	return consultation, nil
}

// reserve assigns and creates the consultation while holding the day and time
// locks, so no concurrent booking sharing either can read a stale busy set.
func (s *service) reserve(ctx context.Context, patientID uuid.UUID, day model.Date, clock string, priority model.Priority) (*model.Consultation, *model.Provider, error) {
	started := time.Now()
	unlock, err := slotlock.AcquireAll(ctx, s.locker, slotlock.SlotKeys(day.Time, clock)...)
	s.metrics.SlotLockWait.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release slot lock", "date", day.String(), "time", clock, "error", err.Error())
		}
	}()

	provider, err := s.assigner.Assign(ctx, patientID, day, clock)
	if err != nil {
		return nil, nil, err
	}

	consultation := &model.Consultation{
		PatientID:  patientID,
		ProviderID: provider.ID,
		Date:       day,
		Time:       clock,
		Status:     model.ConsultationStatusScheduled,
		Priority:   priority,
	}
	if err := s.consultations.Create(ctx, consultation); err != nil {
		return nil, nil, fmt.Errorf("failed to create consultation: %w", err)
	}
	return consultation, provider, nil
}

func (s *service) Reschedule(ctx context.Context, id uuid.UUID, day model.Date, clock string, priority model.Priority) (*model.Consultation, error) {
	consultation, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	consultation.Date = model.Day(day.Time)
	consultation.Time = clock
	consultation.Priority = priority
	consultation.Status = model.ConsultationStatusRescheduled
	if err := s.consultations.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}

	provider, ok, err := s.provider(ctx, consultation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return consultation, nil
	}

	if _, err := s.notifier.Notify(ctx, provider, notification.ConsultationRescheduled{
		PatientName: s.patientName(ctx, consultation.PatientID),
		Date:        consultation.Date,
		Time:        consultation.Time,
		Priority:    consultation.Priority,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Reschedule notification sent", "consultation_id", id.String(), "provider", provider.Name)
	return consultation, nil
}

func (s *service) MarkMissed(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	consultation, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkMissable(consultation); err != nil {
		return nil, err
	}

	consultation.Status = model.ConsultationStatusMissed
	if err := s.consultations.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}

	provider, ok, err := s.provider(ctx, consultation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return consultation, nil
	}

	if _, err := s.notifier.Notify(ctx, provider, notification.ConsultationMissed{
		PatientID: consultation.PatientID,
		Date:      consultation.Date,
		Time:      consultation.Time,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Missed consultation notification sent", "consultation_id", id.String(), "provider", provider.Name)
	return consultation, nil
}

// checkMissable rejects only Missed -> Missed. Completed consultations may
// still be marked missed.
func checkMissable(c *model.Consultation) error {
	if c.Status == model.ConsultationStatusMissed {
		return errors.ErrAlreadyMissed
	}
	return nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	consultation, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	consultation.Status = model.ConsultationStatusCompleted
	if err := s.consultations.Update(ctx, consultation); err != nil {
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}

	s.logger.Info("Consultation marked as completed", "consultation_id", id.String())
	return consultation, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) error {
	consultation, err := s.consultations.Get(ctx, id)
	if err != nil {
		return err
	}

	provider, hasProvider, err := s.provider(ctx, consultation)
	if err != nil {
		return err
	}
	patient, err := s.patients.Get(ctx, consultation.PatientID)
	if err != nil && !errors.HasCode(err, errors.ErrNotFound) {
		return err
	}

	if err := s.consultations.Delete(ctx, id); err != nil {
		return err
	}

	if hasProvider && patient != nil {
		if _, err := s.notifier.Notify(ctx, provider, notification.ConsultationCancelled{
			PatientName: patient.Name,
			Date:        consultation.Date,
			Time:        consultation.Time,
		}); err != nil {
			return err
		}
	}

	s.logger.Info("Consultation deleted", "consultation_id", id.String())
	return nil
}

func (s *service) Summarize(ctx context.Context, providerID uuid.UUID, day model.Date) (*model.ConsultationSummary, error) {
	consultations, err := s.consultations.ListByProviderAndDate(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	if len(consultations) == 0 {
		return nil, errors.NewNotFound("consultations for this provider on the given date", nil)
	}

	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Consultation Summary for Dr. %s on %s\n\n", provider.Name, day)
	for i, c := range consultations {
		fmt.Fprintf(&b, "#%d\nPatient: %s\nTime: %s\nStatus: %s\n\n",
			i+1, s.patientName(ctx, c.PatientID), c.Time, c.Status)
	}
	report := b.String()

	if _, err := s.notifier.Notify(ctx, provider, notification.ConsultationSummary{Date: day, Summary: report}); err != nil {
		return nil, err
	}

	s.logger.Info("Consultation summary sent", "provider_id", providerID.String(), "date", day.String())
	return &model.ConsultationSummary{ProviderID: providerID, Date: day, Summary: report}, nil
}

func (s *service) SendUpcomingReminders(ctx context.Context) (*model.ReminderResult, error) {
	tomorrow := model.Day(s.now()).AddDays(1)

	upcoming, err := s.consultations.ListByDate(ctx, tomorrow)
	if err != nil {
		return nil, err
	}
	if len(upcoming) == 0 {
		s.logger.Info("No upcoming consultations for tomorrow", "date", tomorrow.String())
		return &model.ReminderResult{Message: "No upcoming consultations for tomorrow."}, nil
	}

	sent := 0
	for _, c := range upcoming {
		provider, ok, err := s.provider(ctx, c)
		if err != nil {
			s.logger.Error(err, "Failed to load provider for reminder", "consultation_id", c.ID.String())
			continue
		}
		if !ok {
			continue
		}
		if _, err := s.notifier.Notify(ctx, provider, notification.ConsultationReminder{Date: c.Date, Time: c.Time}); err != nil {
			s.logger.Error(err, "Failed to send reminder", "consultation_id", c.ID.String())
			continue
		}
		sent++
		s.metrics.RemindersSent.Inc()
	}

	s.logger.Info("Reminder sweep finished", "date", tomorrow.String(), "upcoming", len(upcoming), "sent", sent)
	return &model.ReminderResult{Count: sent, Message: "Reminder emails sent successfully."}, nil
}

func (s *service) List(ctx context.Context) ([]*model.Consultation, error) {
	return s.consultations.List(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.consultations.Get(ctx, id)
}

// provider resolves the consultation's provider. A dangling reference is
// reported as ok=false rather than an error.
func (s *service) provider(ctx context.Context, c *model.Consultation) (*model.Provider, bool, error) {
	p, err := s.providers.Get(ctx, c.ProviderID)
	if errors.HasCode(err, errors.ErrNotFound) {
		s.logger.Warn("Consultation references missing provider", "consultation_id", c.ID.String(), "provider_id", c.ProviderID.String())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *service) patientName(ctx context.Context, id uuid.UUID) string {
	p, err := s.patients.Get(ctx, id)
	if err != nil {
		return unknownPatient
	}
	return p.Name
}
