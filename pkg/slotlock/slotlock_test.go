package slotlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consultation-api/pkg/errors"
)

var fastOpts = Options{TTL: time.Second, Step: 10 * time.Millisecond, MaxWait: 100 * time.Millisecond}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, fastOpts), mr
}

func TestSlotKeys(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"slotlock:day:2025-03-14", "slotlock:time:09:30"}, SlotKeys(day, "09:30"))
}

func TestRedisLocker_SecondAcquirerTimesOut(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()
	key := TimeKey("10:00")

	unlock, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	defer unlock(ctx)

	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)
	assert.True(t, errors.HasCode(err, errors.ErrConflict))
}

func TestRedisLocker_WaiterProceedsAfterRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := NewRedisLocker(client, Options{Step: 10 * time.Millisecond, MaxWait: 2 * time.Second})

	ctx := context.Background()
	key := TimeKey("11:00")

	unlock, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = unlock(ctx)
	}()

	unlock2, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists(key))
}

func TestRedisLocker_ReleaseByNonOwnerIsNoop(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()
	key := TimeKey("12:00")

	unlock, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	// Lease expired and another process took the slot.
	require.NoError(t, mr.Set(key, "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_SetsTTL(t *testing.T) {
	locker, mr := newRedisLocker(t)
	key := TimeKey("13:00")

	_, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, time.Second, mr.TTL(key))
}

func TestRedisLocker_RespectsContextDeadline(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := NewRedisLocker(client, Options{Step: 10 * time.Millisecond, MaxWait: time.Minute})

	key := TimeKey("14:00")
	_, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMemoryLocker_DistinctKeysDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker(fastOpts)
	ctx := context.Background()
	day := time.Now()

	_, err := locker.Acquire(ctx, DayKey(day))
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, DayKey(day.AddDate(0, 0, 1)))
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, TimeKey("09:30"))
	require.NoError(t, err)
}

func TestMemoryLocker_ContentionAndExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	locker := NewMemoryLocker(fastOpts)
	locker.clock = func() time.Time { return now }

	ctx := context.Background()
	key := TimeKey("09:00")

	first, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)

	now = now.Add(2 * time.Second)
	second, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	// The expired holder must not free the new holder's slot.
	require.NoError(t, first(ctx))
	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)

	require.NoError(t, second(ctx))
	_, err = locker.Acquire(ctx, key)
	assert.NoError(t, err)
}

func TestAcquireAll_SameDayDifferentTimeBlocks(t *testing.T) {
	locker := NewMemoryLocker(fastOpts)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	unlock, err := AcquireAll(ctx, locker, SlotKeys(day, "10:00")...)
	require.NoError(t, err)

	_, err = AcquireAll(ctx, locker, SlotKeys(day, "11:00")...)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)

	_, err = AcquireAll(ctx, locker, SlotKeys(day.AddDate(0, 0, 1), "10:00")...)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)

	require.NoError(t, unlock(ctx))
	_, err = AcquireAll(ctx, locker, SlotKeys(day, "11:00")...)
	require.NoError(t, err)
}

func TestAcquireAll_FailureReleasesHeldKeys(t *testing.T) {
	locker := NewMemoryLocker(fastOpts)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := locker.Acquire(ctx, TimeKey("10:00"))
	require.NoError(t, err)

	_, err = AcquireAll(ctx, locker, SlotKeys(day, "10:00")...)
	assert.ErrorIs(t, err, errors.ErrSlotBusy)

	// The day key taken before the failure must have been given back.
	_, err = locker.Acquire(ctx, DayKey(day))
	require.NoError(t, err)
}

func TestAcquireAll_Redis(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	unlock, err := AcquireAll(ctx, locker, SlotKeys(day, "10:00")...)
	require.NoError(t, err)
	assert.True(t, mr.Exists(DayKey(day)))
	assert.True(t, mr.Exists(TimeKey("10:00")))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists(DayKey(day)))
	assert.False(t, mr.Exists(TimeKey("10:00")))
}
