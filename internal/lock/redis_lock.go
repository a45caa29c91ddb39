// Package lock provides a Redis-backed mutex keyed by table row.  It closes
// the lost-update window between reading and writing a slot's quantity when
// several webhook deliveries for the same row arrive at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/volunteer-slot-sync/internal/config"
)

// ErrLocked is returned when the lock is still held by someone else after
// the configured wait.
var ErrLocked = errors.New("lock: row is locked")

const pollInterval = 100 * time.Millisecond

// releaseScript deletes the key only if it still holds our token, so a
// holder whose TTL expired cannot release a lock taken over by another.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker implements slot.Locker with SET NX PX.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker returns a locker using rdb and the timings in cfg.
func NewRedisLocker(rdb *redis.Client, cfg config.RowLockConfig) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.TTL, wait: cfg.Wait}
}

// Acquire polls until the lock for key is taken, the wait elapses or ctx is
// done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	full := l.prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", full, err)
		}
		if ok {
			return func() {
				// released on a fresh context; the request may already be gone
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.rdb, []string{full}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, full)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
