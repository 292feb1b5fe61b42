package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(err error) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/consultations", nil)

	RespondWithError(c, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithErrorMapsAppErrors(t *testing.T) {
	w, body := respond(fmt.Errorf("book: %w", errors.ErrAllProvidersBusy))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "all providers are currently busy", body.Message)
}

func TestRespondWithErrorHidesUnknownErrors(t *testing.T) {
	w, body := respond(fmt.Errorf("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestRespondWithErrorHidesInternalAppErrors(t *testing.T) {
	w, body := respond(errors.NewInternal(fmt.Errorf("disk full")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestRespondWithCreated(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithCreated(c, map[string]string{"id": "42"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"id":"42"}}`, w.Body.String())
}
