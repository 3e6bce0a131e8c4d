package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/semantle/internal/game"
)

func newTestStore(ttl time.Duration) (*Memory, *time.Time) {
	m := NewMemoryStore(ttl)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestStore(time.Hour)

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := game.NewSession("abc")
	require.NoError(t, m.Save(ctx, s))
	got, err := m.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(ctx, "abc"))
	_, err = m.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, m.Delete(ctx, "abc"))
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestStore(10 * time.Minute)

	require.NoError(t, m.Save(ctx, game.NewSession("a")))
	require.NoError(t, m.Save(ctx, game.NewSession("b")))

	*clock = clock.Add(9 * time.Minute)
	_, err := m.Get(ctx, "a")
	require.NoError(t, err, "get refreshes the idle timer")

	*clock = clock.Add(9 * time.Minute)
	_, err = m.Get(ctx, "a")
	require.NoError(t, err)
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, m.Len())

	*clock = clock.Add(time.Hour)
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Len())
}

func TestNoExpiryWhenTTLDisabled(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestStore(0)
	require.NoError(t, m.Save(ctx, game.NewSession("a")))
	*clock = clock.Add(1000 * time.Hour)
	_, err := m.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Zero(t, m.Sweep())
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%8)
			_ = m.Save(ctx, game.NewSession(id))
			_, _ = m.Get(ctx, id)
			if i%5 == 0 {
				_ = m.Delete(ctx, id)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Len(), 8)
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewMemoryStore(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
