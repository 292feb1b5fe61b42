// Package slotlock serializes work on a booking slot. A slot is a calendar day
// plus an HH:MM time; a booking holds both the day and the time lock, so no
// two bookings that share either can be inside the critical section at once.
package slotlock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/pkg/errors"
)

const (
	DefaultTTL     = 10 * time.Second
	DefaultStep    = 50 * time.Millisecond
	DefaultMaxWait = 5 * time.Second

	keyPrefix = "slotlock:"
)

// Unlock releases a held slot. Releasing after the lease expired and was
// taken by someone else does nothing.
type Unlock func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

type Options struct {
	TTL     time.Duration
	Step    time.Duration
	MaxWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	return o
}

// DayKey locks every booking on a calendar day.
func DayKey(day time.Time) string {
	return keyPrefix + "day:" + day.UTC().Format("2006-01-02")
}

// TimeKey locks every booking at an HH:MM time, on any day.
func TimeKey(clock string) string {
	return keyPrefix + "time:" + clock
}

// SlotKeys returns the keys a booking must hold, in acquisition order. A
// provider is busy for a slot if it has anything on the same day or at the
// same time, so both must be excluded. Day keys always come first, which
// keeps concurrent bookers from deadlocking.
func SlotKeys(day time.Time, clock string) []string {
	return []string{DayKey(day), TimeKey(clock)}
}

// AcquireAll takes keys in order and returns a single Unlock that releases
// them in reverse. If any acquire fails, the keys already held are released.
func AcquireAll(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	held := make([]Unlock, 0, len(keys))
	release := func(ctx context.Context) error {
		var first error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i](ctx); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, key := range keys {
		unlock, err := l.Acquire(ctx, key)
		if err != nil {
			_ = release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, unlock)
	}
	return release, nil
}

// backend is the primitive each locker implements; acquire polls it.
type backend interface {
	tryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	unlock(ctx context.Context, key, token string) error
}

func acquire(ctx context.Context, b backend, opts Options, key string) (Unlock, error) {
	token := uuid.NewString()

	deadline := time.Now().Add(opts.MaxWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		ok, err := b.tryLock(ctx, key, token, opts.TTL)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if ok {
			return func(ctx context.Context) error {
				return b.unlock(ctx, key, token)
			}, nil
		}

		if !time.Now().Add(opts.Step).Before(deadline) {
			return nil, errors.ErrSlotBusy
		}

		timer := time.NewTimer(opts.Step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.ErrSlotBusy
		case <-timer.C:
		}
	}
}
