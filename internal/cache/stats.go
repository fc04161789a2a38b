package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

const (
	keyStats   = "stats:"
	keyVersion = "stats:ver:"

	// versionTTL bounds how long an idle owner's counter lives. An expired
	// counter reads as zero, which only ever makes a pending fill miss.
	versionTTL = 24 * time.Hour
)

// StatsCache caches per-owner task statistics in Redis.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

// Get reports ok=false on a miss.
func (c *StatsCache) Get(ctx context.Context, owner uuid.UUID) (model.Stats, bool, error) {
	b, err := c.rdb.Get(ctx, statsKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Stats{}, false, nil
	}
	if err != nil {
		return model.Stats{}, false, err
	}
	var st model.Stats
	if err := json.Unmarshal(b, &st); err != nil {
		return model.Stats{}, false, err
	}
	return st, true, nil
}

// Version returns the owner's write counter. Read it before computing the
// stats that are later passed to Set.
func (c *StatsCache) Version(ctx context.Context, owner uuid.UUID) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set stores st only if no task write has bumped the owner's version since
// version was read. A lost race is not an error; the entry is just skipped.
func (c *StatsCache) Set(ctx context.Context, owner uuid.UUID, st model.Stats, version int64) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	vkey := versionKey(owner)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statsKey(owner), b, c.ttl)
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate bumps the owner's version and drops the entry; called after
// every task write.
func (c *StatsCache) Invalidate(ctx context.Context, owner uuid.UUID) error {
	vkey := versionKey(owner)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, statsKey(owner))
		return nil
	})
	return err
}

func statsKey(owner uuid.UUID) string {
	return keyStats + owner.String()
}

func versionKey(owner uuid.UUID) string {
	return keyVersion + owner.String()
}
