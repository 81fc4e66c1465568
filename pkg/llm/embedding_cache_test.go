package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls atomic.Int32
	texts atomic.Int32
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func newCachedProvider(t *testing.T) (*CachedEmbeddingProvider, *countingEmbedder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingEmbedder{}
	cfg := DefaultEmbeddingCacheConfig()
	cfg.Namespace = "text-embedding-004"
	return NewCachedEmbeddingProvider(inner, client, cfg), inner, mr
}

func TestCachedEmbedSingle(t *testing.T) {
	c, inner, mr := newCachedProvider(t)
	ctx := context.Background()

	v1, err := c.EmbedSingle(ctx, "tenant pays rent")
	require.NoError(t, err)
	v2, err := c.EmbedSingle(ctx, "tenant pays rent")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, EmbeddingCacheStats{Hits: 1, Misses: 1}, c.Stats())
	assert.Len(t, mr.Keys(), 1)

	mr.FastForward(8 * 24 * time.Hour)
	_, err = c.EmbedSingle(ctx, "tenant pays rent")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load(), "expired entries are recomputed")
}

func TestCachedEmbedBatchOnlyMisses(t *testing.T) {
	c, inner, _ := newCachedProvider(t)
	ctx := context.Background()

	_, err := c.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)

	out, err := c.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{2}, {3}, {1}}, out)
	assert.Equal(t, int32(3), inner.texts.Load(), "only ccc is embedded on the second call")
}

func TestCorruptedEntryIsReplaced(t *testing.T) {
	c, inner, mr := newCachedProvider(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(c.cacheKey("x"), "not-json"))
	v, err := c.EmbedSingle(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRedisDownFallsBack(t *testing.T) {
	c, inner, mr := newCachedProvider(t)
	mr.Close()

	v, err := c.EmbedSingle(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestClearCache(t *testing.T) {
	c, _, mr := newCachedProvider(t)
	ctx := context.Background()

	_, err := c.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("other:key", "1"))

	require.NoError(t, c.ClearCache(ctx))
	assert.Equal(t, []string{"other:key"}, mr.Keys())
}

func TestDisabledCachePassesThrough(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, nil, nil)

	_, err := c.EmbedSingle(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.EmbedSingle(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, "counting-cached", c.Name())
}
