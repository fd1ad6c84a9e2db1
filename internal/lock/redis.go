package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultTTL   = 10 * time.Second
	retryBackoff = 25 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Redis is a Locker shared by every service instance pointing at the same Redis.
// Each key is held with SET NX PX and released only by its owner token.
// Once every key is taken, all of them are extended to a full ttl, so ttl must
// exceed wait by the time the caller needs to commit.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	logger zerolog.Logger
}

// NewRedis creates a Redis locker. ttl bounds how long a crashed holder keeps a slot.
func NewRedis(client redis.UniversalClient, prefix string, ttl, wait time.Duration, logger *zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if prefix == "" {
		prefix = "pediclinic:lock:"
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "redis_lock").Logger()
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, wait: wait, logger: l}
}

// Lock implements Locker.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()

	waitCtx, cancel := withWait(ctx, r.wait)
	defer cancel()

	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := r.acquire(waitCtx, r.prefix+key, token); err != nil {
			r.release(acquired, token)
			return nil, err
		}
		acquired = append(acquired, r.prefix+key)
	}

	// Keys taken first have been counting down while later ones were awaited.
	if err := r.refresh(ctx, acquired, token); err != nil {
		r.release(acquired, token)
		return nil, err
	}

	return func() { r.release(acquired, token) }, nil
}

// refresh resets every held key to a full ttl. A key that expired and changed
// owner in the meantime fails the whole lock with ErrLockTimeout.
func (r *Redis) refresh(ctx context.Context, keys []string, token string) error {
	ttl := r.ttl.Milliseconds()
	for _, key := range keys {
		n, err := refreshScript.Run(ctx, r.client, []string{key}, token, ttl).Int()
		if err != nil {
			return fmt.Errorf("redis lock refresh %s: %w", key, err)
		}
		if n == 0 {
			r.logger.Warn().Str("key", key).Msg("slot lock expired before all keys were taken")
			return ErrLockTimeout
		}
	}
	return nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ErrLockTimeout
			}
			return fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-time.After(retryBackoff):
		}
	}
}

func (r *Redis) release(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, key := range keys {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Dur("ttl", r.ttl).Msg("failed to release slot lock")
		}
	}
}
