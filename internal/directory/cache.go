// Package directory caches patient and therapist lookups in Redis.
package directory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Source answers directory lookups, usually the database.
type Source interface {
	PatientExists(ctx context.Context, id string) (bool, error)
	TherapistExists(ctx context.Context, id string) (bool, error)
}

const defaultPrefix = "pediclinic:dir:"

type entry struct {
	Exists   bool      `json:"exists"`
	CachedAt time.Time `json:"cached_at"`
}

// Cached is a read-through cache in front of a Source. Only positive answers are
// cached, so a record added to the roster is visible on the next lookup.
type Cached struct {
	source Source
	redis  redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewCached wraps source. A nil client or ttl <= 0 disables caching.
func NewCached(source Source, client redis.UniversalClient, ttl time.Duration, logger *zerolog.Logger) *Cached {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "directory").Logger()
	}
	return &Cached{source: source, redis: client, ttl: ttl, prefix: defaultPrefix, logger: l}
}

func (c *Cached) PatientExists(ctx context.Context, id string) (bool, error) {
	return c.lookup(ctx, "patient:"+id, func() (bool, error) { return c.source.PatientExists(ctx, id) })
}

func (c *Cached) TherapistExists(ctx context.Context, id string) (bool, error) {
	return c.lookup(ctx, "therapist:"+id, func() (bool, error) { return c.source.TherapistExists(ctx, id) })
}

func (c *Cached) lookup(ctx context.Context, key string, load func() (bool, error)) (bool, error) {
	var e entry
	if c.readCache(ctx, c.prefix+key, &e) && e.Exists {
		return true, nil
	}
	ok, err := load()
	if err != nil {
		return false, err
	}
	if ok {
		c.writeCache(ctx, c.prefix+key, entry{Exists: true, CachedAt: time.Now().UTC()})
	}
	return ok, nil
}

// Invalidate drops every cached entry. Called after the roster changes so
// soft-deleted records stop resolving.
func (c *Cached) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	c.logger.Debug().Int("keys", len(keys)).Msg("directory cache invalidated")
	return nil
}

func (c *Cached) enabled() bool {
	return c.redis != nil && c.ttl > 0
}

func (c *Cached) readCache(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Cached) writeCache(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
