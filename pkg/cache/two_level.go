// This module composes two caches into a hierarchy: a fast tier (e.g., bounded in-memory) in front of a slow tier
// (e.g., bounded on disk). Writes and deletions go to both tiers, fast tier first; reads are served by the first tier
// holding the key. Tiers stay independent: a slow tier hit is not copied into the fast tier and keys present in both
// tiers are not reconciled, so Size may count them twice.

package cache

// TwoLevelCache fans reads and writes across a fast and a slow tier. It doesn't own the tiers; they are built and
// configured by the caller. There is no cross-tier atomicity: a failing write to the slow tier leaves the fast tier
// updated.
type TwoLevelCache[K comparable, V any] struct { // Implements Cache.
	fast, slow  Cache[K, V]
	metadata    Metadata[K] // Local to the two-level cache; independent of either tier's own slot.
	hasMetadata bool
}

var _ Cache[string, string] = (*TwoLevelCache[string, string])(nil)

// NewTwoLevelCache is the constructor for TwoLevelCache.
func NewTwoLevelCache[K comparable, V any](fast, slow Cache[K, V]) *TwoLevelCache[K, V] {
	return &TwoLevelCache[K, V]{fast: fast, slow: slow}
}

// Put writes the key to the fast tier, then to the slow tier. The first failure is returned as is.
func (c *TwoLevelCache[K, V]) Put(key K, value V) error {
	if err := c.fast.Put(key, value); err != nil {
		return err
	}
	return c.slow.Put(key, value)
}

// Get reads the key from the fast tier if it holds it, else from the slow tier. The fast tier is never warmed up.
func (c *TwoLevelCache[K, V]) Get(key K) (V, bool /*found*/, error) {
	for _, tier := range []struct {
		name  string
		cache Cache[K, V]
	}{{name: tierFast, cache: c.fast}, {name: tierSlow, cache: c.slow}} {
		exists, err := tier.cache.ContainsKey(key)
		if err != nil {
			return *new(V), false, err
		}
		if exists {
			tierLookupsMetric.WithLabelValues(tier.name, "hit").Inc()
			return tier.cache.Get(key)
		}
	}
	tierLookupsMetric.WithLabelValues(tierNone, "miss").Inc()
	return *new(V), false, nil
}

// Delete removes the key from the fast tier, then from the slow tier.
func (c *TwoLevelCache[K, V]) Delete(key K) error {
	if err := c.fast.Delete(key); err != nil {
		return err
	}
	return c.slow.Delete(key)
}

// DeleteAll clears the fast tier, then the slow tier.
func (c *TwoLevelCache[K, V]) DeleteAll() error {
	if err := c.fast.DeleteAll(); err != nil {
		return err
	}
	return c.slow.DeleteAll()
}

// ContainsKey reports whether either tier holds the key.
func (c *TwoLevelCache[K, V]) ContainsKey(key K) (bool, error) {
	inFast, err := c.fast.ContainsKey(key)
	if err != nil {
		return false, err
	}
	if inFast {
		return true, nil
	}
	return c.slow.ContainsKey(key)
}

// Size returns the sum of both tier sizes; keys held by both tiers are counted twice.
func (c *TwoLevelCache[K, V]) Size() (int, error) {
	fastSize, err := c.fast.Size()
	if err != nil {
		return 0, err
	}
	slowSize, err := c.slow.Size()
	if err != nil {
		return 0, err
	}
	return fastSize + slowSize, nil
}

func (c *TwoLevelCache[K, V]) StoreMetadata(metadata Metadata[K]) error {
	c.metadata = metadata.Clone()
	c.hasMetadata = true
	return nil
}

func (c *TwoLevelCache[K, V]) GetMetadata() (Metadata[K], bool /*found*/, error) {
	return c.metadata.Clone(), c.hasMetadata, nil
}

// Fast returns the first tier.
func (c *TwoLevelCache[K, V]) Fast() Cache[K, V] { return c.fast }

// Slow returns the second tier.
func (c *TwoLevelCache[K, V]) Slow() Cache[K, V] { return c.slow }
