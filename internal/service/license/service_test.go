package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/repository/memory"
	"github.com/jwalitptl/consultation-api/internal/service/notification"
	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

type recordingNotifier struct {
	targets []notification.Target
	err     error
}

func (r *recordingNotifier) Notify(context.Context, *model.Provider, notification.Event) (*model.Notification, error) {
	return nil, errors.New("unexpected Notify")
}

func (r *recordingNotifier) NotifyAll(_ context.Context, targets []notification.Target) ([]*model.Notification, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.targets = append(r.targets, targets...)
	return make([]*model.Notification, len(targets)), nil
}

func mustDay(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(t *testing.T, notifier notification.Notifier, expiries ...string) (*service, *metrics.Metrics) {
	t.Helper()
	repo := memory.NewProviderRepository()
	for i, e := range expiries {
		require.NoError(t, repo.Create(context.Background(), &model.Provider{
			Name:              "Dr " + e,
			Email:             uuid.NewString() + "@x.test",
			NPINumber:         uuid.NewString(),
			LicenseNumber:     "LIC-" + string(rune('A'+i)),
			LicenseExpiryDate: mustDay(e),
		}))
	}
	m := metrics.NewTestMetrics()
	s := NewService(repo, notifier, logger.Nop(), m).(*service)
	s.now = func() time.Time { return time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC) }
	return s, m
}

func TestExpired_StrictlyBeforeToday(t *testing.T) {
	today := mustDay("2025-03-15")
	ps := []*model.Provider{
		{LicenseExpiryDate: mustDay("2025-03-14")},
		{LicenseExpiryDate: mustDay("2025-03-15")},
		{LicenseExpiryDate: mustDay("2025-03-16")},
	}
	got := Expired(ps, today)
	require.Len(t, got, 1)
	assert.Same(t, ps[0], got[0])
}

func TestSweep_NoneExpired(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newService(t, n, "2025-03-15", "2026-01-01")

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No providers with expired licenses found.", report.Message)
	assert.Empty(t, report.ExpiredProviders)
	assert.Empty(t, n.targets)
}

func TestSweep_NotifiesExpired(t *testing.T) {
	n := &recordingNotifier{}
	s, m := newService(t, n, "2025-03-14", "2025-03-15", "2024-12-31")

	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "License expiry check completed.", report.Message)
	require.Len(t, report.ExpiredProviders, 2)
	assert.Equal(t, "2025-03-14", report.ExpiredProviders[0].LicenseExpiryDate.String())
	assert.Equal(t, "2024-12-31", report.ExpiredProviders[1].LicenseExpiryDate.String())

	require.Len(t, n.targets, 2)
	assert.Equal(t, notification.LicenseExpired{LicenseNumber: "LIC-A", ExpiryDate: mustDay("2025-03-14")}, n.targets[0].Event)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ExpiredLicenses))
}

func TestSweep_PersistenceFailure(t *testing.T) {
	n := &recordingNotifier{err: errors.New("bulk insert failed")}
	s, _ := newService(t, n, "2025-01-01")

	_, err := s.Sweep(context.Background())
	assert.ErrorContains(t, err, "bulk insert failed")
}
