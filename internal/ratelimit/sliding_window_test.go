package ratelimit

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeZSet struct {
	entries map[string][]redis.Z
	downErr error
}

func newFakeZSet() *fakeZSet {
	return &fakeZSet{entries: make(map[string][]redis.Z)}
}

func (f *fakeZSet) ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd {
	if f.downErr != nil {
		return redis.NewIntResult(0, f.downErr)
	}
	maxScore, err := strconv.ParseFloat(max, 64)
	if err != nil {
		return redis.NewIntResult(0, err)
	}
	var kept []redis.Z
	var removed int64
	for _, z := range f.entries[key] {
		if z.Score <= maxScore {
			removed++
			continue
		}
		kept = append(kept, z)
	}
	f.entries[key] = kept
	return redis.NewIntResult(removed, nil)
}

func (f *fakeZSet) ZCard(ctx context.Context, key string) *redis.IntCmd {
	if f.downErr != nil {
		return redis.NewIntResult(0, f.downErr)
	}
	return redis.NewIntResult(int64(len(f.entries[key])), nil)
}

func (f *fakeZSet) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	if f.downErr != nil {
		return redis.NewIntResult(0, f.downErr)
	}
	f.entries[key] = append(f.entries[key], members...)
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeZSet) ZRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd {
	zs := append([]redis.Z(nil), f.entries[key]...)
	sort.Slice(zs, func(i, j int) bool { return zs[i].Score < zs[j].Score })
	if stop >= int64(len(zs)) {
		stop = int64(len(zs)) - 1
	}
	if start > stop {
		return redis.NewZSliceCmdResult(nil, nil)
	}
	return redis.NewZSliceCmdResult(zs[start:stop+1], nil)
}

func (f *fakeZSet) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func TestLimiterAdmitsUnderQuota(t *testing.T) {
	store := newFakeZSet()
	l := New(store, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := l.CheckLimit(ctx, 42)
		require.True(t, res.Success, "request %d should be admitted", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}
}

func TestLimiterDeniesOverQuota(t *testing.T) {
	store := newFakeZSet()
	l := New(store, 2, time.Hour)
	ctx := context.Background()

	require.True(t, l.CheckLimit(ctx, 7).Success)
	require.True(t, l.CheckLimit(ctx, 7).Success)

	res := l.CheckLimit(ctx, 7)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.ResetAt.After(time.Now()), "resetAt must be in the future")
}

func TestLimiterWindowExpiryReadmits(t *testing.T) {
	store := newFakeZSet()
	l := New(store, 1, time.Hour)
	ctx := context.Background()

	require.True(t, l.CheckLimit(ctx, 9).Success)
	require.False(t, l.CheckLimit(ctx, 9).Success)

	// Age the recorded entry past the window.
	key := l.key(9)
	for i := range store.entries[key] {
		store.entries[key][i].Score -= float64((time.Hour + time.Minute).Milliseconds())
	}

	assert.True(t, l.CheckLimit(ctx, 9).Success)
}

func TestLimiterIsolatesUsers(t *testing.T) {
	store := newFakeZSet()
	l := New(store, 1, time.Hour)
	ctx := context.Background()

	require.True(t, l.CheckLimit(ctx, 1).Success)
	require.False(t, l.CheckLimit(ctx, 1).Success)
	assert.True(t, l.CheckLimit(ctx, 2).Success)
}

func TestLimiterFailsOpenWhenStoreDown(t *testing.T) {
	store := newFakeZSet()
	store.downErr = errors.New("connection refused")
	l := New(store, 5, time.Hour)

	res := l.CheckLimit(context.Background(), 3)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.Remaining)
}

func TestLimiterNilStoreFailsOpen(t *testing.T) {
	l := New(nil, 5, time.Hour)
	res := l.CheckLimit(context.Background(), 3)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.Remaining)
}
