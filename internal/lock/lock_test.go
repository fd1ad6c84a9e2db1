package lock

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, normalize([]string{"c", "a", "b", "a", "c"}))
	assert.Empty(t, normalize(nil))
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal(time.Second)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "slot:2024-01-01 09:00")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.entries, "entries must be dropped after release")
}

func TestLocal_Timeout(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a", "b")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "b", "c")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// "c" must not stay held after the failed attempt.
	unlockC, err := l.Lock(ctx, "c")
	require.NoError(t, err)
	unlockC()

	unlock()
	unlock() // idempotent

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_LockUnlock(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedis(client, "test:", 5*time.Second, 50*time.Millisecond, nil)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "slot:2024-01-01 09:00", "slot:2024-01-08 09:00")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:slot:2024-01-01 09:00"))
	assert.True(t, mr.Exists("test:slot:2024-01-08 09:00"))

	_, err = l.Lock(ctx, "slot:2024-01-08 09:00")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("test:slot:2024-01-01 09:00"))
	assert.False(t, mr.Exists("test:slot:2024-01-08 09:00"))

	unlock2, err := l.Lock(ctx, "slot:2024-01-08 09:00")
	require.NoError(t, err)
	unlock2()
}

func TestRedis_ReleaseKeepsForeignLock(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedis(client, "test:", time.Second, 50*time.Millisecond, nil)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// The lock expires and another holder takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:k", "someone-else"))

	unlock()
	got, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_PartialAcquireIsRolledBack(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedis(client, "test:", 5*time.Second, 50*time.Millisecond, nil)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:b", "held"))

	_, err := l.Lock(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, mr.Exists("test:a"))
}

func TestRedis_HeldKeysGetFullTTLOnceAllTaken(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedis(client, "test:", time.Second, 5*time.Second, nil)
	ctx := context.Background()

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)

	type result struct {
		unlock func()
		err    error
	}
	done := make(chan result, 1)
	go func() {
		unlock, err := l.Lock(ctx, "a", "b")
		done <- result{unlock, err}
	}()

	require.Eventually(t, func() bool { return mr.Exists("test:a") }, 2*time.Second, 5*time.Millisecond)
	// "a" is now close to expiring while the series still waits for "b".
	mr.FastForward(800 * time.Millisecond)
	unlockB()

	res := <-done
	require.NoError(t, res.err)
	defer res.unlock()
	assert.Equal(t, time.Second, mr.TTL("test:a"))
	assert.Equal(t, time.Second, mr.TTL("test:b"))

	// Without the refresh "a" would have expired here.
	mr.FastForward(500 * time.Millisecond)
	other := NewRedis(client, "test:", time.Second, 50*time.Millisecond, nil)
	_, err = other.Lock(ctx, "a")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedis_LostKeyFailsLock(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedis(client, "test:", time.Second, 5*time.Second, nil)
	ctx := context.Background()

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := l.Lock(ctx, "a", "b")
		done <- err
	}()

	require.Eventually(t, func() bool { return mr.Exists("test:a") }, 2*time.Second, 5*time.Millisecond)
	// "a" expires and another instance takes it before "b" frees up.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:a", "someone-else"))
	unlockB()

	assert.ErrorIs(t, <-done, ErrLockTimeout)
	got, err := mr.Get("test:a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_FailedReleaseIsLogged(t *testing.T) {
	mr, client := newMiniredis(t)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	l := NewRedis(client, "test:", 5*time.Second, 50*time.Millisecond, &logger)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	mr.Close()
	unlock()

	assert.Contains(t, buf.String(), "failed to release slot lock")
	assert.Contains(t, buf.String(), "test:k")
}
