package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	m := metrics.NewTestMetrics()
	var okRuns, failRuns int32

	s := NewScheduler(logger.Nop(), m,
		Job{Name: "reminders", Interval: 10 * time.Millisecond, RunOnStart: true, Run: func(context.Context) error {
			atomic.AddInt32(&okRuns, 1)
			return nil
		}},
		Job{Name: "license", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
			atomic.AddInt32(&failRuns, 1)
			return errors.New("db down")
		}},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, atomic.LoadInt32(&okRuns), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&failRuns), int32(1))
	assert.Equal(t, float64(atomic.LoadInt32(&okRuns)), testutil.ToFloat64(m.SweepRuns.WithLabelValues("reminders", "success")))
	assert.Equal(t, float64(atomic.LoadInt32(&failRuns)), testutil.ToFloat64(m.SweepRuns.WithLabelValues("license", "error")))
}

func TestNewScheduler_PanicsOnBadJob(t *testing.T) {
	assert.Panics(t, func() {
		NewScheduler(logger.Nop(), metrics.NewTestMetrics(), Job{Name: "bad", Run: func(context.Context) error { return nil }})
	})
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 3, calls)
}
