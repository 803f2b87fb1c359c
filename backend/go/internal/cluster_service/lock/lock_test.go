package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Synapse/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Lock(context.Background(), "u1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				old := atomic.LoadInt32(&maxInside)
				if n <= old || atomic.CompareAndSwapInt32(&maxInside, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, m.Len())
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()
	r1, err := m.Lock(context.Background(), "u1")
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := m.Lock(ctx, "u2")
	require.NoError(t, err)
	r2()
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	m := NewKeyedMutex()
	release, err := m.Lock(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op
	assert.Zero(t, m.Len())
}

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	renewed int
	setErr  error
	evalErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, expires: map[string]time.Time{}}
}

// expire drops keys whose ttl has passed; callers hold f.mu.
func (f *fakeRedis) expire(key string) {
	if at, ok := f.expires[key]; ok && time.Now().After(at) {
		delete(f.values, key)
		delete(f.expires, key)
	}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	f.expire(key)
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	if expiration > 0 {
		f.expires[key] = time.Now().Add(expiration)
	}
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.evalErr != nil {
		return redis.NewCmdResult(nil, f.evalErr)
	}
	key := keys[0]
	f.expire(key)
	if f.values[key] != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	if script == renewScript {
		f.renewed++
		f.expires[key] = time.Now().Add(time.Duration(args[1].(int64)) * time.Millisecond)
		return redis.NewCmdResult(int64(1), nil)
	}
	delete(f.values, key)
	delete(f.expires, key)
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(key)
	_, ok := f.values[key]
	return ok
}

func TestRedisLocker(t *testing.T) {
	fr := newFakeRedis()
	l := newRedisLocker(fr, "recluster:", time.Minute, logger.Nop())
	l.retry = time.Millisecond

	release, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, fr.has("recluster:u1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "u1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	assert.False(t, fr.has("recluster:u1"))

	release2, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	fr := newFakeRedis()
	l := newRedisLocker(fr, "", time.Minute, logger.Nop())

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	// the key expired and someone else took it
	fr.mu.Lock()
	fr.values["k"] = "other-token"
	fr.mu.Unlock()
	release()
	assert.Equal(t, "other-token", fr.values["k"])
}

func TestRedisLocker_HolderOutlivesTTL(t *testing.T) {
	fr := newFakeRedis()
	l := newRedisLocker(fr, "recluster:", 60*time.Millisecond, logger.Nop())
	l.retry = time.Millisecond

	release, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)

	// held for several ttls; a second worker must still be kept out
	time.Sleep(250 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "u1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release()
	assert.False(t, fr.has("recluster:u1"))
	fr.mu.Lock()
	renewed := fr.renewed
	fr.mu.Unlock()
	assert.Positive(t, renewed)

	// once released the key is no longer extended and can be taken again
	release2, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_StopsRenewingForeignKey(t *testing.T) {
	fr := newFakeRedis()
	l := newRedisLocker(fr, "", 30*time.Millisecond, logger.Nop())

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	fr.mu.Lock()
	fr.values["k"] = "other-token"
	delete(fr.expires, "k")
	fr.mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	release()
	fr.mu.Lock()
	defer fr.mu.Unlock()
	assert.Equal(t, "other-token", fr.values["k"])
	assert.Zero(t, fr.renewed)
}

func TestRedisLocker_Error(t *testing.T) {
	fr := newFakeRedis()
	fr.setErr = errors.New("connection refused")
	_, err := newRedisLocker(fr, "", time.Minute, logger.Nop()).Lock(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}

func TestChain_ReleasesOnFailure(t *testing.T) {
	m := NewKeyedMutex()
	fr := newFakeRedis()
	fr.setErr = errors.New("down")
	c := Chain{m, newRedisLocker(fr, "", time.Minute, logger.Nop())}

	_, err := c.Lock(context.Background(), "u1")
	require.Error(t, err)
	assert.Zero(t, m.Len())

	fr.setErr = nil
	release, err := c.Lock(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	release()
	assert.Zero(t, m.Len())
	assert.Empty(t, fr.values)
}
