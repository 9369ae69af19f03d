package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMapTwoLevel(t *testing.T) (*TwoLevelCache[string, string], *mapCache[string, string], *mapCache[string, string]) {
	t.Helper()
	fast, slow := newMapCache[string, string](), newMapCache[string, string]()
	return NewTwoLevelCache[string, string](fast, slow), fast, slow
}

func TestTwoLevelCache_FanOut(t *testing.T) {
	cache, fast, slow := newMapTwoLevel(t)
	require.NoError(t, cache.Put("K", "V"))

	for _, tier := range []Cache[string, string]{fast, slow, cache} {
		exists, err := tier.ContainsKey("K")
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Same(t, Cache[string, string](fast), cache.Fast())
	assert.Same(t, Cache[string, string](slow), cache.Slow())

	require.NoError(t, cache.Delete("K"))
	assert.Empty(t, fast.snapshot())
	assert.Empty(t, slow.snapshot())
}

func TestTwoLevelCache_ReadPriority(t *testing.T) {
	slowHits := tierLookupsMetric.WithLabelValues(tierSlow, "hit")
	fastHits := tierLookupsMetric.WithLabelValues(tierFast, "hit")
	misses := tierLookupsMetric.WithLabelValues(tierNone, "miss")
	slowBefore, fastBefore, missesBefore :=
		counterValue(t, slowHits), counterValue(t, fastHits), counterValue(t, misses)

	cache, fast, slow := newMapTwoLevel(t)
	require.NoError(t, slow.Put("slow-only", "from-slow"))
	require.NoError(t, fast.Put("both", "from-fast"))
	require.NoError(t, slow.Put("both", "from-slow"))

	t.Run("slow tier hit doesn't warm up the fast tier", func(t *testing.T) {
		value, found, err := cache.Get("slow-only")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "from-slow", value)

		exists, err := fast.ContainsKey("slow-only")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("fast tier wins", func(t *testing.T) {
		value, found, err := cache.Get("both")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "from-fast", value)
	})

	t.Run("miss", func(t *testing.T) {
		_, found, err := cache.Get("nowhere")
		require.NoError(t, err)
		assert.False(t, found)
	})

	assert.Equal(t, 1.0, counterValue(t, slowHits)-slowBefore)
	assert.Equal(t, 1.0, counterValue(t, fastHits)-fastBefore)
	assert.Equal(t, 1.0, counterValue(t, misses)-missesBefore)
}

func TestTwoLevelCache_Size(t *testing.T) {
	cache, fast, slow := newMapTwoLevel(t)
	require.NoError(t, cache.Put("shared", "v"))
	require.NoError(t, slow.Put("slow-only", "v"))

	size, err := cache.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size, "Overlapping keys are counted once per tier")
	fastSize, _ := fast.Size()
	slowSize, _ := slow.Size()
	assert.Equal(t, fastSize+slowSize, size)

	require.NoError(t, cache.DeleteAll())
	size, err = cache.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestTwoLevelCache_FastTierErrorStopsWrites(t *testing.T) {
	slow := newMapCache[string, string]()
	cache := NewTwoLevelCache[string, string](failingCache[string, string]{}, slow)

	require.ErrorIs(t, cache.Put("K", "V"), errFailingCache)
	require.ErrorIs(t, cache.Delete("K"), errFailingCache)
	require.ErrorIs(t, cache.DeleteAll(), errFailingCache)
	_, _, err := cache.Get("K")
	require.ErrorIs(t, err, errFailingCache)
	_, err = cache.ContainsKey("K")
	require.ErrorIs(t, err, errFailingCache)
	_, err = cache.Size()
	require.ErrorIs(t, err, errFailingCache)
	assert.Zero(t, slow.puts, "Slow tier must stay untouched")
}

func TestTwoLevelCache_SlowTierErrorKeepsFastWrite(t *testing.T) {
	fast := newMapCache[string, string]()
	cache := NewTwoLevelCache[string, string](fast, failingCache[string, string]{})

	require.ErrorIs(t, cache.Put("K", "V"), errFailingCache)
	assert.Equal(t, map[string]string{"K": "V"}, fast.snapshot(), "No rollback across tiers")
}

func TestTwoLevelCache_OverEvictingTiers(t *testing.T) {
	fastBackend, slowBackend := newMapCache[string, string](), newMapCache[string, string]()
	fast, err := NewEvictableCache[string, string](fastBackend, 2, EvictionLRU)
	require.NoError(t, err)
	slow, err := NewEvictableCache[string, string](slowBackend, 4, EvictionLRU)
	require.NoError(t, err)
	cache := NewTwoLevelCache[string, string](fast, slow)

	for _, key := range keys(4) {
		require.NoError(t, cache.Put(key, "value-"+key))
	}
	assert.Len(t, fastBackend.snapshot(), 2)
	assert.Len(t, slowBackend.snapshot(), 4)

	value, found, err := cache.Get("K1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value-K1", value)
	exists, err := fast.ContainsKey("K1")
	require.NoError(t, err)
	assert.False(t, exists)

	size, err := cache.Size()
	require.NoError(t, err)
	assert.Equal(t, 6, size)
}

func TestTwoLevelCache_MetadataSlotIsLocal(t *testing.T) {
	cache, fast, slow := newMapTwoLevel(t)
	_, found, err := cache.GetMetadata()
	require.NoError(t, err)
	assert.False(t, found)

	metadata := Metadata[string]{Policy: EvictionLRU, Recency: []string{"K"}}
	require.NoError(t, cache.StoreMetadata(metadata))
	got, found, err := cache.GetMetadata()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, metadata, got)
	assert.False(t, fast.hasMetadata)
	assert.False(t, slow.hasMetadata)
}
