package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker guards passes across processes sharing a Redis instance
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// Ensure RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(addr string, db int, key string, ttl time.Duration) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// TryLock sets the key if absent. The TTL frees the slot if the holder dies.
func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, shoperrors.NewLock("redis", "cannot acquire pass lock", err)
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Unlock removes the key if this locker still owns it
func (l *RedisLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	if err != nil {
		return shoperrors.NewLock("redis", "cannot release pass lock", err)
	}
	return nil
}

// Close closes the Redis connection
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
