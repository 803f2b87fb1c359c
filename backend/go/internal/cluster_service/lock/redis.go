package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Synapse/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockTimeout is returned when the lock could not be taken before ctx ended.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// renewScript extends the key's expiry only while it still holds our token.
const renewScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`

// redisCommands is the subset of *redis.Client used by RedisLocker.
type redisCommands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a Locker shared by every process using the same Redis. The
// key expires after ttl so a crashed holder cannot block a user forever; a live
// holder keeps extending it every ttl/3 until release.
type RedisLocker struct {
	client redisCommands
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    *logger.Logger
}

// NewRedisLocker creates a RedisLocker whose keys start with prefix.
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *RedisLocker {
	return newRedisLocker(client, prefix, ttl, log)
}

func newRedisLocker(client redisCommands, prefix string, ttl time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		retry:  100 * time.Millisecond,
		log:    log,
	}
}

// Lock polls SETNX until it succeeds or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	rkey := l.prefix + key
	token := uuid.NewString()
	delay := l.retry
	for {
		ok, err := l.client.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", rkey, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, rkey, ctx.Err())
		case <-t.C:
		}
		if delay < time.Second {
			delay *= 2
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	if l.ttl > 0 {
		go l.keepAlive(rkey, token, stop, done)
	} else {
		close(done)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// release with a fresh context so a cancelled request still frees the key
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.client.Eval(rctx, releaseScript, []string{rkey}, token).Err(); err != nil {
				l.log.WithErr(err).WithField("key", rkey).Warn("Failed to release redis lock; it will expire")
			}
		})
	}, nil
}

func (l *RedisLocker) keepAlive(rkey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := l.client.Eval(ctx, renewScript, []string{rkey}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			l.log.WithErr(err).WithField("key", rkey).Warn("Failed to extend redis lock")
			continue
		}
		if n == 0 {
			l.log.WithField("key", rkey).Critical("Redis lock expired while held; another worker may run concurrently")
			return
		}
	}
}
