package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(newTestRedis(t), "rl"),
	}
}

func TestLimiterSlidingWindow(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
			l := New(store, WithClock(clock.Now))
			rule := Rule{Name: "register", Limit: 3, Window: time.Minute}
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				d, err := l.Check(ctx, rule, "10.0.0.1")
				require.NoError(t, err)
				assert.True(t, d.Allowed)
				assert.Equal(t, 2-i, d.Remaining)
				clock.Advance(10 * time.Second)
			}

			d, err := l.Check(ctx, rule, "10.0.0.1")
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, 30*time.Second, d.RetryAfter)

			// other identities and rules have their own budget
			d, err = l.Check(ctx, rule, "10.0.0.2")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			d, err = l.Check(ctx, Rule{Name: "verify", Limit: 3, Window: time.Minute}, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, d.Allowed)

			// the first hit leaves the window after a minute
			clock.Advance(30 * time.Second)
			d, err = l.Check(ctx, rule, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
		})
	}
}

func TestLimiterRejectsInvalidRule(t *testing.T) {
	l := New(NewMemoryStore())
	_, err := l.Check(context.Background(), Rule{Name: "x"}, "ip")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestLimiterConcurrentCallsNeverExceedLimit(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			l := New(store)
			rule := Rule{Name: "complete_registration", Limit: 5, Window: time.Minute}

			var admitted int64
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					d, err := l.Check(context.Background(), rule, "10.0.0.9")
					if err == nil && d.Allowed {
						atomic.AddInt64(&admitted, 1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int64(5), admitted)
		})
	}
}

func TestMemoryStoreSweepsIdleKeys(t *testing.T) {
	s := NewMemoryStore()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= sweepThreshold; i++ {
		_, err := s.Allow(context.Background(), string(rune('a'+i%26))+time.Duration(i).String(), 1, time.Second, start)
		require.NoError(t, err)
	}
	_, err := s.Allow(context.Background(), "late", 1, time.Second, start.Add(time.Hour))
	require.NoError(t, err)

	assert.Len(t, s.hits, 1)
}
