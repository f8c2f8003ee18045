package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"zone-coverage-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, ttl, wait), mr
}

// exclusive runs n goroutines that each hold the zone lock briefly and
// reports the highest number of holders seen at once.
func exclusive(t *testing.T, l domain.ZoneLocker, n int) int32 {
	t.Helper()
	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		peak    atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 7)
			if !assert.NoError(t, err) {
				return
			}
			cur := holders.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			holders.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	return peak.Load()
}

func TestMemoryLocker(t *testing.T) {
	t.Run("Mutual Exclusion", func(t *testing.T) {
		l := NewMemoryLocker(time.Second)
		assert.Equal(t, int32(1), exclusive(t, l, 10))
	})

	t.Run("Times Out", func(t *testing.T) {
		l := NewMemoryLocker(20 * time.Millisecond)
		unlock, err := l.Lock(context.Background(), 1)
		require.NoError(t, err)
		defer unlock()

		_, err = l.Lock(context.Background(), 1)
		assert.ErrorIs(t, err, domain.ErrZoneLocked)
	})

	t.Run("Zones Are Independent", func(t *testing.T) {
		l := NewMemoryLocker(20 * time.Millisecond)
		unlock, err := l.Lock(context.Background(), 1)
		require.NoError(t, err)
		defer unlock()

		unlock2, err := l.Lock(context.Background(), 2)
		require.NoError(t, err)
		unlock2()
	})

	t.Run("Double Unlock Is Safe", func(t *testing.T) {
		l := NewMemoryLocker(20 * time.Millisecond)
		unlock, err := l.Lock(context.Background(), 1)
		require.NoError(t, err)
		unlock()
		unlock()

		again, err := l.Lock(context.Background(), 1)
		require.NoError(t, err)
		again()
	})

	t.Run("Context Cancelled", func(t *testing.T) {
		l := NewMemoryLocker(0)
		unlock, err := l.Lock(context.Background(), 1)
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = l.Lock(ctx, 1)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRedisLocker(t *testing.T) {
	t.Run("Mutual Exclusion", func(t *testing.T) {
		l, _ := newRedisLocker(t, 5*time.Second, 2*time.Second)
		assert.Equal(t, int32(1), exclusive(t, l, 5))
	})

	t.Run("Times Out", func(t *testing.T) {
		l, mr := newRedisLocker(t, 5*time.Second, 50*time.Millisecond)
		unlock, err := l.Lock(context.Background(), 3)
		require.NoError(t, err)
		assert.True(t, mr.Exists("zone-lock:3"))

		_, err = l.Lock(context.Background(), 3)
		assert.ErrorIs(t, err, domain.ErrZoneLocked)

		unlock()
		assert.False(t, mr.Exists("zone-lock:3"))
	})

	t.Run("Renewed While Held", func(t *testing.T) {
		l, mr := newRedisLocker(t, 90*time.Millisecond, 50*time.Millisecond)
		unlock, err := l.Lock(context.Background(), 5)
		require.NoError(t, err)

		mr.FastForward(60 * time.Millisecond)
		assert.Eventually(t, func() bool {
			return mr.TTL("zone-lock:5") == 90*time.Millisecond
		}, time.Second, 5*time.Millisecond)

		mr.FastForward(60 * time.Millisecond)
		assert.True(t, mr.Exists("zone-lock:5"), "a write longer than the ttl keeps its lock")

		_, err = l.Lock(context.Background(), 5)
		assert.ErrorIs(t, err, domain.ErrZoneLocked)

		unlock()
		unlock()
		assert.False(t, mr.Exists("zone-lock:5"))
	})

	t.Run("Stale Holder Cannot Release New Lock", func(t *testing.T) {
		l, mr := newRedisLocker(t, time.Second, 50*time.Millisecond)
		staleUnlock, err := l.Lock(context.Background(), 4)
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)
		freshUnlock, err := l.Lock(context.Background(), 4)
		require.NoError(t, err)

		staleUnlock()
		assert.True(t, mr.Exists("zone-lock:4"), "lock taken over by the second writer survives")
		freshUnlock()
		assert.False(t, mr.Exists("zone-lock:4"))
	})
}
