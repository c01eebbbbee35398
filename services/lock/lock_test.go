package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second TryLock should fail while held")

	require.NoError(t, l.Unlock(ctx))

	ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Unlocking twice is harmless
	require.NoError(t, l.Unlock(ctx))
	require.NoError(t, l.Unlock(ctx))
}

func TestLocalLockerSingleWinner(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.TryLock(ctx); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	key := "shopbot:test:pass_lock"

	first := NewRedisLocker("localhost:6379", 0, key, 5*time.Second)
	defer first.Close()
	second := NewRedisLocker("localhost:6379", 0, key, 5*time.Second)
	defer second.Close()

	if _, err := first.client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	first.client.Del(ctx, key)

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A locker that does not own the key leaves it alone
	require.NoError(t, second.Unlock(ctx))
	assert.Equal(t, int64(1), first.client.Exists(ctx, key).Val())

	require.NoError(t, first.Unlock(ctx))
	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock(ctx))
}

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemcacheLocker("localhost:11211", "shopbot_test_pass_lock", 5*time.Second)

	_, err := l.client.Get("test")
	if err != nil && err != memcache.ErrCacheMiss {
		t.Skip("Memcached is not available, skipping test")
	}
	l.client.Delete(l.key)

	ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Unlock(ctx))
	require.NoError(t, l.Unlock(ctx))

	ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock(ctx))
}

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheLockerKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	first := NewMemcacheLocker("localhost:11211", "shopbot_test_foreign_lock", 5*time.Second)
	second := NewMemcacheLocker("localhost:11211", "shopbot_test_foreign_lock", 5*time.Second)

	_, err := first.client.Get("test")
	if err != nil && err != memcache.ErrCacheMiss {
		t.Skip("Memcached is not available, skipping test")
	}
	first.client.Delete(first.key)

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// The first holder's TTL runs out and another process takes the slot
	require.NoError(t, first.client.Delete(first.key))
	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A late release by the first holder must not free the second's slot
	require.NoError(t, first.Unlock(ctx))
	ok, err = first.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Unlock(ctx))
	ok, err = first.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, first.Unlock(ctx))
}

func TestNewMemcacheLockerCapsTTL(t *testing.T) {
	l := NewMemcacheLocker("localhost:11211", "k", 90*24*time.Hour)
	assert.Equal(t, MaxMemcacheTTL, l.ttl)

	l = NewMemcacheLocker("localhost:11211", "k", 30*time.Minute)
	assert.Equal(t, 30*time.Minute, l.ttl)
}
