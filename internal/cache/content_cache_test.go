package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilotapp/postpilot/internal/models"
)

type fakeStore struct {
	data    map[string]string
	downErr error
	sets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.downErr != nil {
		return redis.NewStringResult("", f.downErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.downErr != nil {
		return redis.NewStatusResult("", f.downErr)
	}
	f.sets++
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeStore) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	var keys []string
	for k := range f.data {
		keys = append(keys, k)
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(1, nil)
}

func testBrief() *models.ContentBrief {
	return &models.ContentBrief{
		Industry: "fitness",
		Tone:     models.ToneFriendly,
		Keywords: []string{"yoga", "wellness"},
		Platform: "instagram",
	}
}

func TestCacheRoundTrip(t *testing.T) {
	store := newFakeStore()
	c := New(store, time.Hour)
	ctx := context.Background()

	brief := testBrief()
	assert.Nil(t, c.Get(ctx, brief))

	content := &models.GeneratedContent{
		Caption:     "Morning yoga flow",
		Hashtags:    []string{"#yoga"},
		ImagePrompt: "sunrise yoga",
		OptimalTime: "08:00",
	}
	c.Set(ctx, brief, content)

	got := c.Get(ctx, brief)
	require.NotNil(t, got)
	assert.Equal(t, content.Caption, got.Caption)
	assert.Equal(t, content.Hashtags, got.Hashtags)
}

func TestCacheKeyIgnoresKeywordOrder(t *testing.T) {
	a := &models.ContentBrief{Industry: "Fitness", Tone: models.ToneBold, Keywords: []string{"b", "a"}, Platform: "twitter"}
	b := &models.ContentBrief{Industry: "fitness", Tone: models.ToneBold, Keywords: []string{"a", "b"}, Platform: "twitter"}
	assert.Equal(t, a.Hash(), b.Hash())

	c := &models.ContentBrief{Industry: "fitness", Tone: models.ToneBold, Keywords: []string{"a", "c"}, Platform: "twitter"}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestCacheDegradesWhenStoreDown(t *testing.T) {
	store := newFakeStore()
	store.downErr = errors.New("connection refused")
	c := New(store, time.Hour)
	ctx := context.Background()

	brief := testBrief()
	c.Set(ctx, brief, &models.GeneratedContent{Caption: "x"})
	assert.Nil(t, c.Get(ctx, brief))
	assert.Zero(t, store.sets)
}

func TestCacheNilStoreIsNoOp(t *testing.T) {
	c := New(nil, time.Hour)
	ctx := context.Background()

	assert.False(t, c.Available())
	assert.Nil(t, c.Get(ctx, testBrief()))
	c.Set(ctx, testBrief(), &models.GeneratedContent{Caption: "x"})
	assert.NoError(t, c.Invalidate(ctx, ""))
}

func TestCacheDropsCorruptEntries(t *testing.T) {
	store := newFakeStore()
	c := New(store, time.Hour)
	ctx := context.Background()

	brief := testBrief()
	store.data[keyPrefix+brief.Hash()] = "{not json"
	assert.Nil(t, c.Get(ctx, brief))
	_, stillThere := store.data[keyPrefix+brief.Hash()]
	assert.False(t, stillThere)
}

func TestCacheInvalidate(t *testing.T) {
	store := newFakeStore()
	c := New(store, time.Hour)
	ctx := context.Background()

	brief := testBrief()
	data, err := json.Marshal(&models.GeneratedContent{Caption: "x"})
	require.NoError(t, err)
	store.data[keyPrefix+brief.Hash()] = string(data)

	require.NoError(t, c.Invalidate(ctx, ""))
	assert.Empty(t, store.data)
}
