package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

func newTestMemory() (*Memory, *abtime.ManualTime) {
	clock := abtime.NewManual()
	return NewMemory(WithClock(clock)), clock
}

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	clock.Advance(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err := m.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryNoExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	clock.Advance(24 * time.Hour)

	ttl, err := m.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestMemoryIncrementKeepsWindow(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	n, err := m.Increment(ctx, "c", 10*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	clock.Advance(4 * time.Second)
	n, err = m.Increment(ctx, "c", 10*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ttl, err := m.TTL(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 6*time.Second, ttl)

	clock.Advance(6 * time.Second)
	n, err = m.Increment(ctx, "c", 10*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "a fresh window starts at one")
}

func TestMemoryIncrementNotInteger(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("abc"), 0))
	_, err := m.Increment(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestMemoryDeleteAndSweep(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, m.Set(ctx, "c", []byte("3"), 0))

	require.NoError(t, m.Delete(ctx, "c"))
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	_, err := m.TTL(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("value"), 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'X'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(again))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("memcached", "")
	assert.Error(t, err)

	c, err := Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	require.NoError(t, c.Close())
}

func TestMemoryJanitorSweeps(t *testing.T) {
	clock := abtime.NewManual()
	m := NewMemory(WithClock(clock), WithJanitor(5*time.Millisecond))
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	clock.Advance(2 * time.Second)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemorySetNX(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	ok, err := m.SetNX(ctx, "lock", []byte("a"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetNX(ctx, "lock", []byte("b"), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(time.Second)
	ok, err = m.SetNX(ctx, "lock", []byte("c"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "an expired key counts as absent")

	got, err := m.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "c", string(got))
}

func TestMemoryTake(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Take(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	_, err = m.Take(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "old", []byte("v"), time.Second))
	clock.Advance(time.Second)
	_, err = m.Take(ctx, "old")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Zero(t, m.Len())
}

func TestMemoryTakeAndSetNXAreExclusive(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	require.NoError(t, m.Set(ctx, "token", []byte("v"), 0))

	var taken, locked atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Take(ctx, "token"); err == nil {
				taken.Add(1)
			}
			if ok, _ := m.SetNX(ctx, "lock", []byte("x"), time.Minute); ok {
				locked.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, taken.Load())
	assert.EqualValues(t, 1, locked.Load())
}
