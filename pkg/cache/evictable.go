package cache

// NewEvictionStrategy resolves the eviction type into a concrete strategy wrapping the given backend. EvictionNone and
// any value outside the known policies are rejected with a CodeUnknownEvictionType error.
func NewEvictionStrategy[K comparable, V any](backend Cache[K, V], maxEntrySize int,
	evictionType EvictionType) (EvictionStrategy[K, V], error) {
	switch evictionType {
	case EvictionLRU:
		lru, err := NewLRU(backend, maxEntrySize)
		if err != nil {
			return nil, err
		}
		return lru, nil
	case EvictionLFU:
		return NewLFU(backend, maxEntrySize), nil
	default:
		return nil, unknownEvictionType(evictionType)
	}
}

// EvictableCache is a cache bounded by an eviction strategy. It exists so that any Cache consumer can use an evicting
// cache without telling it apart from a non-evicting one: every call is handed to the strategy as is.
type EvictableCache[K comparable, V any] struct { // Implements Cache.
	strategy EvictionStrategy[K, V]
}

var _ Cache[string, string] = (*EvictableCache[string, string])(nil)

// NewEvictableCache wraps the backend in the strategy selected by evictionType. The backend must not be used directly
// afterward.
func NewEvictableCache[K comparable, V any](backend Cache[K, V], maxEntrySize int,
	evictionType EvictionType) (*EvictableCache[K, V], error) {
	strategy, err := NewEvictionStrategy(backend, maxEntrySize, evictionType)
	if err != nil {
		return nil, err
	}
	return &EvictableCache[K, V]{strategy: strategy}, nil
}

func (e *EvictableCache[K, V]) Put(key K, value V) error { return e.strategy.Put(key, value) }

func (e *EvictableCache[K, V]) Get(key K) (V, bool /*found*/, error) { return e.strategy.Get(key) }

func (e *EvictableCache[K, V]) Delete(key K) error { return e.strategy.Delete(key) }

func (e *EvictableCache[K, V]) DeleteAll() error { return e.strategy.DeleteAll() }

func (e *EvictableCache[K, V]) ContainsKey(key K) (bool, error) { return e.strategy.ContainsKey(key) }

func (e *EvictableCache[K, V]) Size() (int, error) { return e.strategy.Size() }

func (e *EvictableCache[K, V]) StoreMetadata(metadata Metadata[K]) error {
	return e.strategy.StoreMetadata(metadata)
}

func (e *EvictableCache[K, V]) GetMetadata() (Metadata[K], bool /*found*/, error) {
	return e.strategy.GetMetadata()
}

// Strategy returns the eviction strategy the cache delegates to.
func (e *EvictableCache[K, V]) Strategy() EvictionStrategy[K, V] {
	return e.strategy
}
