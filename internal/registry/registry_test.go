package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

const npiBody = `{
	"result_count": 1,
	"results": [{
		"number": 1234567893,
		"basic": {"first_name": "JOHN", "last_name": "SMITH"},
		"addresses": [{"state": "CA", "city": "LOS ANGELES"}, {"state": "NV"}]
	}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, MaxRetries: 3, RetryBackoff: time.Second}, logger.Nop(), metrics.NewTestMetrics())
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestFetchProvider(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234567893", r.URL.Query().Get("number"))
		assert.Equal(t, "2.1", r.URL.Query().Get("version"))
		w.Write([]byte(npiBody))
	})

	rec, err := c.FetchProvider(context.Background(), "1234567893")
	require.NoError(t, err)
	assert.Equal(t, "1234567893", rec.Number.String())
	assert.Equal(t, "JOHN", rec.Basic.FirstName)
	assert.Equal(t, "CA", rec.PrimaryState())
}

func TestFetchProvider_NoResultsIsNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result_count":0,"results":[]}`))
	})

	_, err := c.FetchProvider(context.Background(), "0000000000")
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestRetriesOn429WithLinearBackoff(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(npiBody))
	})

	_, err := c.FetchProvider(context.Background(), "1234567893")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
}

func TestGivesUpAfterThreeRetries(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchProvider(context.Background(), "1234567893")
	assert.True(t, errors.HasCode(err, errors.ErrIntegration))
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Len(t, *sleeps, 3)
}

func TestDoesNotRetryOnServerError(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.FetchProvider(context.Background(), "1234567893")
	assert.True(t, errors.HasCode(err, errors.ErrIntegration))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *sleeps)
}

func TestSearchesAreCachedButFetchIsNot(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(npiBody))
	})
	ctx := context.Background()

	first, err := c.SearchByTaxonomy(ctx, "Family Medicine", "CA")
	require.NoError(t, err)
	second, err := c.SearchByTaxonomy(ctx, "Family Medicine", "CA")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = c.SearchByOrganization(ctx, "Acme Clinic", "CA")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = c.FetchProvider(ctx, "1234567893")
	require.NoError(t, err)
	_, err = c.FetchProvider(ctx, "1234567893")
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestSearchEmptyResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Nobody Inc", r.URL.Query().Get("organization_name"))
		w.Write([]byte(`{"result_count":0}`))
	})

	results, err := c.SearchByOrganization(context.Background(), "Nobody Inc", "TX")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, logger.Nop(), metrics.NewTestMetrics())
	_, err := c.FetchProvider(context.Background(), "1")
	assert.True(t, errors.HasCode(err, errors.ErrIntegration))
}

func TestPrimaryStateUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Record{}.PrimaryState())
}
