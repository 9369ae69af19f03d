package cache

import (
	"maps"
	"slices"

	"github.com/jmgilman/go/errors"
)

// mapCache is a bare map backed Cache used to observe what the layers under test do to their backends.
type mapCache[K comparable, V any] struct {
	entries     map[K]V
	metadata    Metadata[K]
	hasMetadata bool
	puts        int // Number of successful Put calls.
}

var (
	_ Cache[string, string] = (*mapCache[string, string])(nil)
	_ KeyLister[string]     = (*mapCache[string, string])(nil)
)

func newMapCache[K comparable, V any]() *mapCache[K, V] {
	return &mapCache[K, V]{entries: make(map[K]V)}
}

func (m *mapCache[K, V]) Put(key K, value V) error {
	m.entries[key] = value
	m.puts++
	return nil
}

func (m *mapCache[K, V]) Get(key K) (V, bool, error) {
	value, found := m.entries[key]
	return value, found, nil
}

func (m *mapCache[K, V]) Delete(key K) error {
	delete(m.entries, key)
	return nil
}

func (m *mapCache[K, V]) DeleteAll() error {
	clear(m.entries)
	return nil
}

func (m *mapCache[K, V]) ContainsKey(key K) (bool, error) {
	_, found := m.entries[key]
	return found, nil
}

func (m *mapCache[K, V]) Size() (int, error) { return len(m.entries), nil }

func (m *mapCache[K, V]) StoreMetadata(metadata Metadata[K]) error {
	m.metadata = metadata.Clone()
	m.hasMetadata = true
	return nil
}

func (m *mapCache[K, V]) GetMetadata() (Metadata[K], bool, error) {
	return m.metadata.Clone(), m.hasMetadata, nil
}

func (m *mapCache[K, V]) Keys() ([]K, error) { return slices.Collect(maps.Keys(m.entries)), nil }

func (m *mapCache[K, V]) snapshot() map[K]V { return maps.Clone(m.entries) }

// failingCache fails every call with a storage error.
type failingCache[K comparable, V any] struct{}

var _ Cache[string, string] = failingCache[string, string]{}

var errFailingCache = errors.New(CodeStorage, "backend is unavailable")

func (failingCache[K, V]) Put(K, V) error                          { return errFailingCache }
func (failingCache[K, V]) Get(K) (V, bool, error)                  { return *new(V), false, errFailingCache }
func (failingCache[K, V]) Delete(K) error                          { return errFailingCache }
func (failingCache[K, V]) DeleteAll() error                        { return errFailingCache }
func (failingCache[K, V]) ContainsKey(K) (bool, error)             { return false, errFailingCache }
func (failingCache[K, V]) Size() (int, error)                      { return 0, errFailingCache }
func (failingCache[K, V]) StoreMetadata(Metadata[K]) error         { return errFailingCache }
func (failingCache[K, V]) GetMetadata() (Metadata[K], bool, error) { return Metadata[K]{}, false, errFailingCache }
