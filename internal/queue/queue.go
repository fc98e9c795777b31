// Package queue parks message ids for recipients with no live connection.
package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRetention is how long an undelivered id stays queued
	DefaultRetention = 14 * 24 * time.Hour

	keyPrefix = "offline:"
)

type OfflineQueue struct {
	rdb       *redis.Client
	retention time.Duration
	now       func() time.Time
}

func New(rdb *redis.Client, retention time.Duration) *OfflineQueue {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &OfflineQueue{rdb: rdb, retention: retention, now: time.Now}
}

// WithClock replaces the enqueue clock.
func (q *OfflineQueue) WithClock(now func() time.Time) *OfflineQueue {
	q.now = now
	return q
}

func Key(userID string) string {
	return keyPrefix + userID
}

func unavailable(err error) error {
	return apperrors.Unavailable("offline queue unavailable", err)
}

func (q *OfflineQueue) floor(now time.Time) string {
	return strconv.FormatInt(now.Add(-q.retention).UnixMilli(), 10)
}

// Enqueue adds messageID to userID's queue once. Re-enqueueing a queued id
// keeps its original position.
func (q *OfflineQueue) Enqueue(ctx context.Context, userID, messageID string) error {
	now := q.now()
	key := Key(userID)

	var added *redis.IntCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+q.floor(now))
		added = pipe.ZAddNX(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: messageID})
		pipe.Expire(ctx, key, q.retention)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	if added.Val() > 0 {
		metrics.OfflineEnqueued.Inc()
	}
	return nil
}

// Drain returns the queued ids in arrival order and empties the queue in the
// same transaction. Expired ids are not returned.
func (q *OfflineQueue) Drain(ctx context.Context, userID string) ([]string, error) {
	key := Key(userID)

	var ids *redis.StringSliceCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ids = pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: q.floor(q.now()), Max: "+inf"})
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return ids.Val(), nil
}

// Remove takes a single id out of userID's queue. It reports whether this call
// removed it, so only one of several racing deliverers acts on the id.
func (q *OfflineQueue) Remove(ctx context.Context, userID, messageID string) (bool, error) {
	n, err := q.rdb.ZRem(ctx, Key(userID), messageID).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// Len reports how many ids are queued, including any past retention.
func (q *OfflineQueue) Len(ctx context.Context, userID string) (int64, error) {
	n, err := q.rdb.ZCard(ctx, Key(userID)).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
