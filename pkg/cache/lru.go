// This module implements the least recently used (LRU) eviction strategy on top of any Cache backend.
// Recency Policy:
// Keys are kept in a doubly linked list, most recently used at the front. Writing a key (new or existing) and reading
// an existing key move it to the front. A key index points at the list nodes so moving and removing are O(1).
//
// Capacity Policy:
// The strategy enforces a hard ceiling of maxEntrySize keys. Before a new key is admitted into a full backend, the
// key at the back of the list is deleted from the backend; exactly one key is evicted per overflowing Put.
//
// Persistence:
// After every mutating or recency-affecting call the whole sequence is written into the backend's metadata slot, so a
// disk backend reopened by another process carries the recency order along with the data. If the data write succeeds
// but the metadata write fails, the persisted sequence is stale until the next successful call; nothing is rolled
// back, and a reopening strategy reconciles the stale sequence with the backend keys.

package cache

import (
	"log/slog"

	"github.com/jmgilman/go/errors"
	"github.com/nobletooth/strata/pkg/utils"
)

// EvictionStrategy wraps a backend, bounds its entry count and decides which entry leaves when it is full. It
// implements the whole Cache contract; the metadata slot it exposes is its own, since the backend slot is taken by the
// strategy's bookkeeping.
type EvictionStrategy[K comparable, V any] interface {
	Cache[K, V]
	Type() EvictionType // The policy implemented by the strategy.
}

// LRU is the least recently used eviction strategy. It exclusively owns its backend: writing to the backend directly
// would desynchronize the recency list from the data. It is not thread-safe.
type LRU[K comparable, V any] struct {
	backend      Cache[K, V]
	maxEntrySize int
	recency      *linkedList[K]           // Front is the most recently used key.
	index        map[K]*linkedListNode[K] // Provides lookup for a recency node by its key.
	metadata     Metadata[K]              // The outer metadata slot exposed to the strategy's users.
	hasMetadata  bool
}

var _ EvictionStrategy[string, string] = (*LRU[string, string])(nil)

// NewLRU is the constructor for LRU. An empty backend gets an empty recency sequence written into its metadata slot.
// A non-empty backend (e.g., a reopened disk store) must carry an LRU sequence, which is reconciled with the backend
// keys, adopted and trimmed down to maxEntrySize if the capacity shrank since it was written.
func NewLRU[K comparable, V any](backend Cache[K, V], maxEntrySize int) (*LRU[K, V], error) {
	if maxEntrySize <= 0 {
		return nil, invalidMaxEntrySize(maxEntrySize)
	}
	lru := &LRU[K, V]{
		backend:      backend,
		maxEntrySize: maxEntrySize,
		recency:      new(linkedList[K]),
		index:        make(map[K]*linkedListNode[K], maxEntrySize),
	}

	size, err := backend.Size()
	if err != nil {
		return nil, err
	}
	if size > 0 {
		if err := lru.adoptRecency(size); err != nil {
			return nil, err
		}
		for lru.recency.Len() > lru.maxEntrySize {
			if err := lru.evict(); err != nil {
				return nil, err
			}
		}
	}
	if err := lru.persist(); err != nil {
		return nil, err
	}
	return lru, nil
}

// adoptRecency loads the persisted recency sequence of a non-empty backend into the in-memory list.
// A stale LRU sequence (e.g., left behind by a failed metadata write) is reconciled with the backend: keys the backend
// no longer holds are dropped and backend keys missing from the sequence are appended as the least recently used.
// Only a missing slot, a slot owned by another policy, or untracked keys on a backend that can't list them are fatal.
func (l *LRU[K, V]) adoptRecency(size int) error {
	persisted, found, err := l.backend.GetMetadata()
	if err != nil {
		return err
	}
	corrupt := func(reason string) error {
		return errors.WithContextMap(errors.Newf(CodeCorruptMetadata, "cannot adopt recency sequence: %s", reason),
			map[string]interface{}{"backendSize": size, "recencySize": len(persisted.Recency)})
	}
	switch {
	case !found:
		return corrupt("backend holds data but no metadata")
	case persisted.Policy != EvictionLRU:
		return corrupt("metadata belongs to policy " + persisted.Policy.String())
	}

	dropped := 0
	for _, key := range persisted.Recency {
		if _, duplicate := l.index[key]; duplicate {
			dropped++
			continue
		}
		exists, err := l.backend.ContainsKey(key)
		if err != nil {
			return err
		}
		if !exists {
			dropped++
			continue
		}
		l.index[key] = l.recency.PushBack(key)
	}

	appended := 0
	if l.recency.Len() != size {
		lister, ok := l.backend.(KeyLister[K])
		if !ok {
			return corrupt("backend holds keys missing from the sequence and can't list them")
		}
		backendKeys, err := lister.Keys()
		if err != nil {
			return err
		}
		for _, key := range backendKeys {
			if _, tracked := l.index[key]; !tracked {
				l.index[key] = l.recency.PushBack(key)
				appended++
			}
		}
	}

	if dropped > 0 || appended > 0 {
		slog.Warn("Reconciled stale recency sequence with the backend.", "entries", l.recency.Len(),
			"dropped", dropped, "appended", appended, "maxEntrySize", l.maxEntrySize)
		return nil
	}
	slog.Debug("Adopted persisted recency sequence.", "entries", size, "maxEntrySize", l.maxEntrySize)
	return nil
}

// persist writes the full recency sequence into the backend metadata slot.
func (l *LRU[K, V]) persist() error {
	return l.backend.StoreMetadata(Metadata[K]{Policy: EvictionLRU, Recency: l.recency.Values()})
}

// evict deletes the least recently used key from the backend and the recency list.
func (l *LRU[K, V]) evict() error {
	back := l.recency.Back()
	if back == nil {
		utils.RaiseInvariant("lru", "evict_empty_list", "Eviction requested on an empty recency list.",
			"maxEntrySize", l.maxEntrySize)
		return nil
	}
	evictedKey := back.Value
	if err := l.backend.Delete(evictedKey); err != nil {
		return err
	}
	l.recency.Remove(back)
	delete(l.index, evictedKey)
	evictionsMetric.WithLabelValues(EvictionLRU.String()).Inc()
	slog.Debug("Evicted least recently used key.", "key", evictedKey, "maxEntrySize", l.maxEntrySize)
	return nil
}

// touch moves a key the backend holds to the front of the recency list.
func (l *LRU[K, V]) touch(key K) {
	if node, tracked := l.index[key]; tracked {
		l.recency.MoveToFront(node)
		return
	}
	// Only reachable if someone wrote into the backend behind the strategy's back.
	utils.RaiseInvariant("lru", "untracked_backend_key", "Backend holds a key missing from the recency list.",
		"key", key)
	l.index[key] = l.recency.PushFront(key)
}

// Put inserts or overwrites a key, making it the most recently used one. If the key is new and the cache is full,
// the least recently used key is evicted first.
func (l *LRU[K, V]) Put(key K, value V) error {
	exists, err := l.backend.ContainsKey(key)
	if err != nil {
		return err
	}
	if !exists {
		if _, tracked := l.index[key]; tracked {
			utils.RaiseInvariant("lru", "orphan_recency_key", "Recency list holds a key missing from the backend.",
				"key", key)
			l.recency.Remove(l.index[key])
			delete(l.index, key)
		}
		if l.recency.Len() >= l.maxEntrySize {
			if err := l.evict(); err != nil {
				return err
			}
		}
	}

	if err := l.backend.Put(key, value); err != nil {
		return err
	}
	if exists {
		l.touch(key)
	} else {
		l.index[key] = l.recency.PushFront(key)
	}
	return l.persist()
}

// Get returns the value of a key, making it the most recently used one if present. Missing keys are never promoted.
func (l *LRU[K, V]) Get(key K) (V, bool /*found*/, error) {
	exists, err := l.backend.ContainsKey(key)
	if err != nil {
		return *new(V), false, err
	}
	if exists {
		l.touch(key)
		if err := l.persist(); err != nil {
			return *new(V), false, err
		}
	}
	return l.backend.Get(key)
}

// Delete removes a key from the backend and from the recency list.
func (l *LRU[K, V]) Delete(key K) error {
	if err := l.backend.Delete(key); err != nil {
		return err
	}
	node, tracked := l.index[key]
	if !tracked {
		return nil
	}
	l.recency.Remove(node)
	delete(l.index, key)
	return l.persist()
}

// DeleteAll clears the backend and persists an empty recency sequence.
func (l *LRU[K, V]) DeleteAll() error {
	if err := l.backend.DeleteAll(); err != nil {
		return err
	}
	l.recency.Clear()
	clear(l.index)
	return l.persist()
}

// ContainsKey checks the backend without affecting recency.
func (l *LRU[K, V]) ContainsKey(key K) (bool, error) {
	return l.backend.ContainsKey(key)
}

// Size returns the backend size without affecting recency.
func (l *LRU[K, V]) Size() (int, error) {
	return l.backend.Size()
}

func (l *LRU[K, V]) StoreMetadata(metadata Metadata[K]) error {
	l.metadata = metadata.Clone()
	l.hasMetadata = true
	return nil
}

func (l *LRU[K, V]) GetMetadata() (Metadata[K], bool /*found*/, error) {
	return l.metadata.Clone(), l.hasMetadata, nil
}

func (l *LRU[K, V]) Type() EvictionType { return EvictionLRU }

// Recency returns a snapshot of the keys ordered from the most to the least recently used.
func (l *LRU[K, V]) Recency() []K {
	return l.recency.Values()
}

// MaxEntrySize returns the capacity enforced by the strategy.
func (l *LRU[K, V]) MaxEntrySize() int {
	return l.maxEntrySize
}
