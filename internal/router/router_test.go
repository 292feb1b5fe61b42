package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/internal/email"
	consultationhandler "github.com/jwalitptl/consultation-api/internal/handler/consultation"
	"github.com/jwalitptl/consultation-api/internal/handler/health"
	licensehandler "github.com/jwalitptl/consultation-api/internal/handler/license"
	notificationhandler "github.com/jwalitptl/consultation-api/internal/handler/notification"
	patienthandler "github.com/jwalitptl/consultation-api/internal/handler/patient"
	"github.com/jwalitptl/consultation-api/internal/handler/prometheus"
	providerhandler "github.com/jwalitptl/consultation-api/internal/handler/provider"
	"github.com/jwalitptl/consultation-api/internal/middleware"
	"github.com/jwalitptl/consultation-api/internal/registry"
	"github.com/jwalitptl/consultation-api/internal/repository/memory"
	"github.com/jwalitptl/consultation-api/internal/service/assignment"
	"github.com/jwalitptl/consultation-api/internal/service/consultation"
	"github.com/jwalitptl/consultation-api/internal/service/license"
	"github.com/jwalitptl/consultation-api/internal/service/notification"
	"github.com/jwalitptl/consultation-api/internal/service/patient"
	"github.com/jwalitptl/consultation-api/internal/service/provider"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
	"github.com/jwalitptl/consultation-api/pkg/slotlock"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
}

func (a *testAPI) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func nppes(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("number") {
		case "1111111111":
			fmt.Fprint(w, `{"result_count":1,"results":[{"number":1111111111,"basic":{"first_name":"GREGORY","last_name":"HOUSE"},"addresses":[{"state":"NJ"}]}]}`)
		default:
			fmt.Fprint(w, `{"result_count":0,"results":[]}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAPI(t *testing.T) *testAPI {
	log := logger.Nop()
	m := metrics.NewTestMetrics()

	patients := memory.NewPatientRepository()
	providers := memory.NewProviderRepository()
	consultations := memory.NewConsultationRepository()
	notifications := memory.NewNotificationRepository()

	reg := registry.NewClient(registry.Config{BaseURL: nppes(t).URL, Timeout: time.Second}, log, m)
	notifier := notification.NewService(notifications, providers, email.NewLogSender(log), nil, notification.Config{}, log, m)
	assigner := assignment.NewService(patients, providers, consultations, log, m)
	locker := slotlock.NewMemoryLocker(slotlock.Options{})

	r, err := NewRouter(
		RouterConfig{Mode: gin.TestMode, Timeout: 5 * time.Second, CORSConfig: middleware.DefaultCORSConfig(nil)},
		prometheus.New(promclient.NewRegistry()),
		health.NewHandler(nil),
		patienthandler.NewHandler(patient.NewService(patients, log)),
		providerhandler.NewHandler(provider.NewService(providers, reg, log)),
		consultationhandler.NewHandler(consultation.NewService(consultations, patients, providers, assigner, notifier, locker, log, m)),
		notificationhandler.NewHandler(notifier),
		licensehandler.NewHandler(license.NewService(providers, notifier, log, m)),
	)
	require.NoError(t, err)
	r.Setup()
	return &testAPI{t: t, engine: r.Engine()}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodPost, "/api/providers/addprovider", map[string]string{
		"firstName": "Gregory", "lastName": "House", "name": "Gregory House", "email": "house@ppth.test",
		"specialization": "Diagnostics", "taxonomy": "Internal Medicine", "npiNumber": "1111111111",
		"state": "nj", "licenseNumber": "NJ-1", "licenseExpiryDate": "2020-01-01",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = api.do(http.MethodPost, "/api/providers/verify/1111111111", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "Verified", decode[map[string]interface{}](t, env.Data)["status"])

	code, env = api.do(http.MethodPost, "/api/patients", map[string]string{
		"name": "Jane Doe", "email": "jane@x.test", "reason_for_consultation": "diagnostics",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	patientID := decode[map[string]interface{}](t, env.Data)["id"].(string)

	booking := map[string]string{"patient_id": patientID, "date": "2030-01-02", "time": "10:00", "priority": "urgent"}
	code, env = api.do(http.MethodPost, "/api/consultations", booking)
	require.Equal(t, http.StatusCreated, code, env.Message)
	consultationID := decode[map[string]interface{}](t, env.Data)["id"].(string)

	// The only provider is now busy on that day.
	booking["time"] = "11:00"
	code, env = api.do(http.MethodPost, "/api/consultations", booking)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "all providers are currently busy", env.Message)

	code, _ = api.do(http.MethodPut, "/api/consultations/missed/"+consultationID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = api.do(http.MethodPut, "/api/consultations/missed/"+consultationID, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "consultation is already marked as missed", env.Message)

	code, env = api.do(http.MethodPut, "/api/consultations/"+consultationID+"/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Completed", decode[map[string]interface{}](t, env.Data)["status"])

	code, env = api.do(http.MethodGet, "/api/notification", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]interface{}](t, env.Data), 2)

	code, env = api.do(http.MethodGet, "/api/license/check-license-expiry", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "License expiry check completed.", env.Message)

	code, _ = api.do(http.MethodDelete, "/api/consultations/"+consultationID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodGet, "/api/consultations/"+consultationID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodPost, "/api/consultations", map[string]string{
		"patient_id": "not-a-uuid", "date": "2030-01-02", "time": "7pm", "priority": "urgent",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "time must be a time in HH:MM format")

	code, _ = api.do(http.MethodGet, "/api/consultations/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPost, "/api/notification/system-downtime", map[string]string{"message": "Maintenance"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "no verified providers found", env.Message)

	code, _ = api.do(http.MethodGet, "/api/providers/organization", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPost, "/api/providers/verify/2222222222", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	api.do(http.MethodGet, "/api/consultations", nil)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/consultations",status="200"} 1`)
}
