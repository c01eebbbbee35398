package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"

	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// MaxMemcacheTTL is the longest relative expiration memcached accepts;
// larger values are read as an absolute Unix time
const MaxMemcacheTTL = 30 * 24 * time.Hour

// MemcacheLocker guards passes across processes sharing a memcached instance
type MemcacheLocker struct {
	client *memcache.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// Ensure MemcacheLocker implements Locker
var _ Locker = (*MemcacheLocker)(nil)

// NewMemcacheLocker creates a memcache-backed locker. ttl is capped at
// MaxMemcacheTTL.
func NewMemcacheLocker(serverAddr string, key string, ttl time.Duration) *MemcacheLocker {
	return &MemcacheLocker{
		client: memcache.New(serverAddr),
		key:    key,
		ttl:    min(ttl, MaxMemcacheTTL),
	}
}

// TryLock uses memcache's add, which only stores missing keys
func (l *MemcacheLocker) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	err := l.client.Add(&memcache.Item{
		Key:        l.key,
		Value:      []byte(token),
		Expiration: int32(l.ttl.Seconds()),
	})
	if errors.Is(err, memcache.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, shoperrors.NewLock("memcache", "cannot acquire pass lock", err)
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Unlock releases the key only while it still holds our token. The release
// is a compare-and-swap to an already expired item, so a holder that took
// the slot after our TTL ran out keeps it.
func (l *MemcacheLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return nil
	}

	item, err := l.client.Get(l.key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return shoperrors.NewLock("memcache", "cannot release pass lock", err)
	}
	if string(item.Value) != token {
		return nil
	}

	item.Expiration = -1
	err = l.client.CompareAndSwap(item)
	if errors.Is(err, memcache.ErrCASConflict) || errors.Is(err, memcache.ErrNotStored) || errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return shoperrors.NewLock("memcache", "cannot release pass lock", err)
	}
	return nil
}
