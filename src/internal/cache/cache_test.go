package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *Cache[int] {
	t.Helper()
	c := New[int](zap.NewNop(), 0)
	t.Cleanup(c.Stop)
	return c
}

func TestGetAfterSet(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", 42, time.Minute)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetMissing(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestGetAfterExpiry(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", 42, time.Minute)

	c.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestIsStale(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", 1, 5*time.Minute)
	assert.False(t, c.IsStale("k", time.Minute))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.True(t, c.IsStale("k", time.Minute))

	// Fully expired entries are not stale, they are gone.
	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	assert.False(t, c.IsStale("k", time.Minute))
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", 1, time.Minute)
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache(t)

	c.Set("team:t1:report", 1, time.Minute)
	c.Set("team:t1:alerts", 2, time.Minute)
	c.Set("team:t2:report", 3, time.Minute)

	c.InvalidatePrefix("team:t1:")

	_, ok := c.Get("team:t1:report")
	assert.False(t, ok)
	_, ok = c.Get("team:t1:alerts")
	assert.False(t, ok)
	v, ok := c.Get("team:t2:report")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestGetOrFetch_MissFetchesOnce(t *testing.T) {
	c := newTestCache(t)
	calls := 0

	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, 0, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)

	// Second read is a pure hit.
	v, err = c.GetOrFetch(context.Background(), "k", time.Minute, 0, func(context.Context) (int, error) {
		calls++
		return 8, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_FetchErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	boom := errors.New("upstream down")

	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, 0, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetOrFetch_SingleFlight(t *testing.T) {
	c := newTestCache(t)

	var fetches atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		fetches.Add(1)
		<-release
		return 99, nil
	}

	const readers = 25
	var wg sync.WaitGroup
	results := make([]int, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "shared", time.Minute, 0, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let every reader reach the cache before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load(), "concurrent readers must share one fetch")
	for _, v := range results {
		assert.Equal(t, 99, v)
	}
}

func TestGetOrFetch_StaleWhileRevalidate(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", 1, 5*time.Minute)

	// Past the staleness threshold but before expiry.
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	refreshed := make(chan struct{})
	v, err := c.GetOrFetch(context.Background(), "k", 5*time.Minute, time.Minute, func(context.Context) (int, error) {
		defer close(refreshed)
		return 2, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, v, "stale value is served immediately")

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh did not run")
	}

	// The refresh eventually lands in the cache.
	assert.Eventually(t, func() bool {
		got, ok := c.Get("k")
		return ok && got == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetOrFetch_StaleRefreshFailureKeepsValue(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", 1, 5*time.Minute)
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	attempted := make(chan struct{})
	v, err := c.GetOrFetch(context.Background(), "k", 5*time.Minute, time.Minute, func(context.Context) (int, error) {
		defer close(attempted)
		return 0, errors.New("refresh failed")
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	<-attempted
	assert.Eventually(t, func() bool {
		got, ok := c.Get("k")
		return ok && got == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSweepRemovesExpired(t *testing.T) {
	c := newTestCache(t)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("old", 1, time.Minute)
	c.Set("fresh", 2, time.Hour)

	c.now = func() time.Time { return base.Add(10 * time.Minute) }
	c.sweep()

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}
