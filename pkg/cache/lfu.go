package cache

// LFU is the least frequently used eviction strategy. It can be selected and constructed like any other strategy, but
// it is not implemented yet: every operation is a no-op, reads find nothing and the size is always zero.
// TODO: Track access counts per key and evict the least frequently used one once the LRU flow has settled.
type LFU[K comparable, V any] struct { // Implements EvictionStrategy.
	backend      Cache[K, V]
	maxEntrySize int
}

var _ EvictionStrategy[string, string] = (*LFU[string, string])(nil)

// NewLFU is the constructor for LFU. The backend is kept but never touched.
func NewLFU[K comparable, V any](backend Cache[K, V], maxEntrySize int) *LFU[K, V] {
	return &LFU[K, V]{backend: backend, maxEntrySize: maxEntrySize}
}

// Put does nothing.
func (l *LFU[K, V]) Put(K, V) error { return nil }

// Get always reports the key as missing.
func (l *LFU[K, V]) Get(K) (V, bool, error) { return *new(V), false, nil }

// Delete does nothing.
func (l *LFU[K, V]) Delete(K) error { return nil }

// DeleteAll does nothing.
func (l *LFU[K, V]) DeleteAll() error { return nil }

// ContainsKey always returns false.
func (l *LFU[K, V]) ContainsKey(K) (bool, error) { return false, nil }

// Size always returns zero.
func (l *LFU[K, V]) Size() (int, error) { return 0, nil }

// StoreMetadata does nothing.
func (l *LFU[K, V]) StoreMetadata(Metadata[K]) error { return nil }

// GetMetadata always reports an empty slot.
func (l *LFU[K, V]) GetMetadata() (Metadata[K], bool, error) { return Metadata[K]{}, false, nil }

func (l *LFU[K, V]) Type() EvictionType { return EvictionLFU }
