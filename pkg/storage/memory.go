// Strata storage backends keep the key-value pairs of a cache along with a single metadata slot, used by eviction
// strategies for their bookkeeping. Backends are unbounded; capacity is enforced by the layers wrapping them.

package storage

import (
	"maps"
	"slices"

	"github.com/nobletooth/strata/pkg/cache"
)

// MemoryStore is a map backed store. Contents are lost with the process. It is not thread-safe.
type MemoryStore[K comparable, V any] struct { // Implements cache.Cache.
	data        map[K]V
	metadata    cache.Metadata[K]
	hasMetadata bool
}

var (
	_ cache.Cache[string, string] = (*MemoryStore[string, string])(nil)
	_ cache.KeyLister[string]     = (*MemoryStore[string, string])(nil)
)

// NewMemoryStore is the constructor for MemoryStore.
func NewMemoryStore[K comparable, V any]() *MemoryStore[K, V] {
	return &MemoryStore[K, V]{data: make(map[K]V)}
}

func (m *MemoryStore[K, V]) Put(key K, value V) error {
	m.data[key] = value
	return nil
}

func (m *MemoryStore[K, V]) Get(key K) (V, bool /*found*/, error) {
	value, found := m.data[key]
	return value, found, nil
}

func (m *MemoryStore[K, V]) Delete(key K) error {
	delete(m.data, key)
	return nil
}

func (m *MemoryStore[K, V]) DeleteAll() error {
	clear(m.data)
	return nil
}

func (m *MemoryStore[K, V]) ContainsKey(key K) (bool, error) {
	_, found := m.data[key]
	return found, nil
}

func (m *MemoryStore[K, V]) Size() (int, error) {
	return len(m.data), nil
}

func (m *MemoryStore[K, V]) Keys() ([]K, error) {
	return slices.Collect(maps.Keys(m.data)), nil
}

// StoreMetadata keeps a copy of the metadata, so later changes to the caller's recency slice don't leak in.
func (m *MemoryStore[K, V]) StoreMetadata(metadata cache.Metadata[K]) error {
	m.metadata = metadata.Clone()
	m.hasMetadata = true
	return nil
}

func (m *MemoryStore[K, V]) GetMetadata() (cache.Metadata[K], bool /*found*/, error) {
	return m.metadata.Clone(), m.hasMetadata, nil
}
