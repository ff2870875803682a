package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*Store[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)}
	return NewStore[string](ttl, clock.Now, nil), clock
}

func ptr(s string) *string { return &s }

func TestStore_BeginFinish(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	id := NewID()

	_, ok := store.Latest(id)
	assert.False(t, ok)

	require.NoError(t, store.Begin(id))
	assert.ErrorIs(t, store.Begin(id), ErrRunInProgress)

	store.Finish(id, ptr("first"))
	latest, ok := store.Latest(id)
	require.True(t, ok)
	assert.Equal(t, "first", *latest)

	t.Run("failed run keeps previous result", func(t *testing.T) {
		require.NoError(t, store.Begin(id))
		store.Finish(id, nil)

		latest, ok := store.Latest(id)
		require.True(t, ok)
		assert.Equal(t, "first", *latest)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		other := NewID()
		require.NoError(t, store.Begin(other))
		_, ok := store.Latest(other)
		assert.False(t, ok)
		store.Finish(other, ptr("second"))

		latest, _ := store.Latest(id)
		assert.Equal(t, "first", *latest)
	})
}

func TestStore_FinishUnknownSession(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	store.Finish("missing", ptr("x"))
	assert.Equal(t, 0, store.Len())
}

func TestStore_Sweep(t *testing.T) {
	store, clock := newTestStore(time.Hour)

	idle, busy, fresh := NewID(), NewID(), NewID()
	require.NoError(t, store.Begin(idle))
	store.Finish(idle, ptr("idle"))
	require.NoError(t, store.Begin(busy))

	clock.Advance(50 * time.Minute)
	require.NoError(t, store.Begin(fresh))
	store.Finish(fresh, ptr("fresh"))

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, ok := store.Latest(idle)
	assert.False(t, ok, "idle session expired")
	_, ok = store.Latest(fresh)
	assert.True(t, ok)
	assert.ErrorIs(t, store.Begin(busy), ErrRunInProgress, "busy session survives the sweep")
}

func TestStore_RunSweeperStopsOnCancel(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- store.RunSweeper(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStore_ConcurrentBegin(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	id := NewID()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Begin(id) == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, started)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.False(t, ValidID("not-a-session"))
	assert.False(t, ValidID(""))
}
