package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository/memory"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
)

func TestCreateGetList(t *testing.T) {
	svc := NewService(memory.NewPatientRepository(), logger.Nop())
	ctx := context.Background()

	p, err := svc.Create(ctx, &model.CreatePatientRequest{Name: " Jane Doe ", Email: "jane@x.test", ReasonForConsultation: "Cardiology"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, model.PatientRole, p.Role)
	assert.NotEqual(t, uuid.Nil, p.ID)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)

	_, err = svc.Create(ctx, &model.CreatePatientRequest{Name: "Other", Email: "JANE@x.test", ReasonForConsultation: "x"})
	assert.True(t, errors.HasCode(err, errors.ErrConflict))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestCreate_RequiresFields(t *testing.T) {
	svc := NewService(memory.NewPatientRepository(), logger.Nop())
	_, err := svc.Create(context.Background(), &model.CreatePatientRequest{Name: "Jane", Email: "j@x.test"})
	assert.True(t, errors.HasCode(err, errors.ErrValidation))
}
