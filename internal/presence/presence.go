// Package presence is the cluster-wide record of which users hold a live
// connection. It is the only place online status is read from.
package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	onlineKey = "presence:online"
	seenKey   = "presence:seen"
)

type Registry struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb, now: time.Now}
}

// WithClock replaces the heartbeat clock.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func unavailable(err error) error {
	return apperrors.Unavailable("presence registry unavailable", err)
}

// MarkOnline is idempotent and refreshes the heartbeat.
func (r *Registry) MarkOnline(ctx context.Context, userID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, onlineKey, userID)
		pipe.ZAdd(ctx, seenKey, redis.Z{Score: float64(r.now().UnixMilli()), Member: userID})
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// MarkOffline is idempotent.
func (r *Registry) MarkOffline(ctx context.Context, userID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, onlineKey, userID)
		pipe.ZRem(ctx, seenKey, userID)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Registry) IsOnline(ctx context.Context, userID string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, onlineKey, userID).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// ListOnline reports status for each id; missing ids map to false.
func (r *Registry) ListOnline(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	flags, err := r.rdb.SMIsMember(ctx, onlineKey, members...).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	for i, id := range ids {
		out[id] = flags[i]
	}
	return out, nil
}

// Online returns every online user id, in no particular order.
func (r *Registry) Online(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, onlineKey).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

// Touch records a heartbeat for users that are still connected and puts back
// any online flag a racing disconnect cleared.
func (r *Registry) Touch(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	score := float64(r.now().UnixMilli())
	seen := make([]redis.Z, len(userIDs))
	online := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		seen[i] = redis.Z{Score: score, Member: id}
		online[i] = id
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, onlineKey, online...)
		pipe.ZAdd(ctx, seenKey, seen...)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Sweep clears users whose last heartbeat is older than staleAfter, which is
// how entries left behind by a crashed node age out. It returns the ids removed.
func (r *Registry) Sweep(ctx context.Context, staleAfter time.Duration) ([]string, error) {
	cutoff := r.now().Add(-staleAfter).UnixMilli()
	stale, err := r.rdb.ZRangeByScore(ctx, seenKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	members := make([]interface{}, len(stale))
	for i, id := range stale {
		members[i] = id
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, onlineKey, members...)
		pipe.ZRem(ctx, seenKey, members...)
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	metrics.PresenceSwept.Add(float64(len(stale)))
	return stale, nil
}
