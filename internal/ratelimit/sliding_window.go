package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the slice of redis the limiter needs. *redis.Client satisfies it.
type Store interface {
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type Result struct {
	Success   bool      `json:"success"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter admits requests through a sliding window: each admitted request is
// recorded with its timestamp in a per-user sorted set, and entries older
// than the window are purged on every check. Fail-open: if the backing store
// is unreachable the request is allowed and the full quota reported, since
// availability of generation beats strict limiting.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

func (l *Limiter) key(userID int64) string {
	return fmt.Sprintf("ratelimit:generation:%d", userID)
}

func (l *Limiter) open(now time.Time) Result {
	return Result{Success: true, Limit: l.limit, Remaining: l.limit, ResetAt: now.Add(l.window)}
}

// CheckLimit reports whether the user may issue another generation request
// and records the request when admitted.
func (l *Limiter) CheckLimit(ctx context.Context, userID int64) Result {
	now := time.Now()
	if l.store == nil {
		return l.open(now)
	}

	key := l.key(userID)
	cutoff := now.Add(-l.window)

	if err := l.store.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixMilli(), 10)).Err(); err != nil {
		slog.Info("rate limiter purge failed, failing open: " + err.Error())
		return l.open(now)
	}

	count, err := l.store.ZCard(ctx, key).Result()
	if err != nil {
		slog.Info("rate limiter count failed, failing open: " + err.Error())
		return l.open(now)
	}

	if count >= int64(l.limit) {
		resetAt := now.Add(l.window)
		if oldest, err := l.store.ZRangeWithScores(ctx, key, 0, 0).Result(); err == nil && len(oldest) > 0 {
			resetAt = time.UnixMilli(int64(oldest[0].Score)).Add(l.window)
		}
		return Result{Success: false, Limit: l.limit, Remaining: 0, ResetAt: resetAt}
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := l.store.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member}).Err(); err != nil {
		slog.Info("rate limiter record failed, failing open: " + err.Error())
		return l.open(now)
	}
	l.store.Expire(ctx, key, l.window)

	return Result{
		Success:   true,
		Limit:     l.limit,
		Remaining: l.limit - int(count) - 1,
		ResetAt:   now.Add(l.window),
	}
}
