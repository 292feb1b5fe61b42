package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository"
)

const consultationColumns = `id, patient_id, provider_id, date, time, status, priority, created_at, updated_at`

type consultationRepository struct {
	*BaseRepository
}

func NewConsultationRepository(base *BaseRepository) repository.ConsultationRepository {
	return &consultationRepository{BaseRepository: base}
}

func (r *consultationRepository) Create(ctx context.Context, consultation *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, patient_id, provider_id, date, time, status, priority,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if consultation.ID == uuid.Nil {
		consultation.ID = uuid.New()
	}
	consultation.CreatedAt = time.Now().UTC()
	consultation.UpdatedAt = consultation.CreatedAt

	_, err := r.GetDB().ExecContext(ctx, query,
		consultation.ID,
		consultation.PatientID,
		consultation.ProviderID,
		consultation.Date,
		consultation.Time,
		consultation.Status,
		consultation.Priority,
		consultation.CreatedAt,
		consultation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`
	var consultation model.Consultation
	if err := r.GetDB().GetContext(ctx, &consultation, query, id); err != nil {
		return nil, lookupErr(err, "consultation")
	}
	return &consultation, nil
}

func (r *consultationRepository) Update(ctx context.Context, consultation *model.Consultation) error {
	query := `
		UPDATE consultations
		SET date = $1, time = $2, status = $3, priority = $4, updated_at = $5
		WHERE id = $6
	`
	consultation.UpdatedAt = time.Now().UTC()

	result, err := r.GetDB().ExecContext(ctx, query,
		consultation.Date,
		consultation.Time,
		consultation.Status,
		consultation.Priority,
		consultation.UpdatedAt,
		consultation.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return requireRow(result, "consultation")
}

func (r *consultationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	return requireRow(result, "consultation")
}

func (r *consultationRepository) List(ctx context.Context) ([]*model.Consultation, error) {
	return r.list(ctx, ``)
}

func (r *consultationRepository) ListByDate(ctx context.Context, day model.Date) ([]*model.Consultation, error) {
	return r.list(ctx, `WHERE date = $1`, day)
}

func (r *consultationRepository) ListByProviderAndDate(ctx context.Context, providerID uuid.UUID, day model.Date) ([]*model.Consultation, error) {
	return r.list(ctx, `WHERE provider_id = $1 AND date = $2`, providerID, day)
}

func (r *consultationRepository) list(ctx context.Context, where string, args ...interface{}) ([]*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations ` + where + ` ORDER BY created_at, id`
	consultations := []*model.Consultation{}
	if err := r.GetDB().SelectContext(ctx, &consultations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}

func (r *consultationRepository) ListBusyProviderIDs(ctx context.Context, day model.Date, clock string) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT provider_id FROM consultations WHERE date = $1 OR time = $2`
	ids := []uuid.UUID{}
	if err := r.GetDB().SelectContext(ctx, &ids, query, day, clock); err != nil {
		return nil, fmt.Errorf("failed to list busy providers: %w", err)
	}
	return ids, nil
}
