package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NewNotFound("patient", nil), http.StatusNotFound},
		{"validation", NewValidation("all fields are required"), http.StatusBadRequest},
		{"conflict", ErrAllProvidersBusy, http.StatusConflict},
		{"integration", NewIntegration("registry unavailable", nil), http.StatusBadGateway},
		{"internal", NewInternal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("book consultation: %w", ErrNoEligibleProvider)

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrConflict, appErr.Code)
	assert.True(t, Is(wrapped, ErrNoEligibleProvider))
	assert.True(t, HasCode(wrapped, ErrConflict))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrConflict))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewNotFound("consultation", fmt.Errorf("sql: no rows in result set"))
	assert.Equal(t, "consultation not found: sql: no rows in result set", err.Error())
}
