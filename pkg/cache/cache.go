// Strata caches key-value pairs in interchangeable backends (memory, disk, redis) and optionally bounds them with an
// eviction policy. This module provides the Cache contract which every backend and every composed cache implements,
// making evicting, non-evicting, two-level and sharded caches have the same API.

package cache

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jmgilman/go/errors"
)

// Cache defines the interface for a generic key-value cache. Storage backends (e.g., in-memory map, file-persisted
// map) and the layers composed on top of them (e.g., EvictableCache, TwoLevelCache) all implement it.
// A missing key is never an error: Get returns found=false, Delete is a no-op and ContainsKey returns false.
type Cache[K comparable, V any] interface {
	// Put inserts or overwrites the value of the given key.
	Put(key K, value V) error
	// Get returns the stored value for the given key and a boolean indicating whether the key was found.
	Get(key K) (V, bool /*found*/, error)
	Delete(key K) error // Removes the key if present.
	DeleteAll() error   // Removes every key.
	ContainsKey(key K) (bool, error)
	Size() (int, error) // Number of stored keys.
	// StoreMetadata replaces the single auxiliary metadata slot; last write wins.
	StoreMetadata(metadata Metadata[K]) error
	// GetMetadata returns the auxiliary metadata slot and whether anything was stored in it.
	GetMetadata() (Metadata[K], bool /*found*/, error)
}

// KeyLister is implemented by backends able to enumerate the keys they hold, in no particular order. Eviction
// strategies use it to reconcile stale bookkeeping with the data found in a reopened backend.
type KeyLister[K comparable] interface {
	Keys() ([]K, error)
}

// Metadata is the auxiliary bookkeeping an eviction strategy persists next to the data of the cache it wraps.
// Policy discriminates the owner of the slot, so a strategy never interprets another policy's bookkeeping.
type Metadata[K comparable] struct {
	Policy  EvictionType
	Recency []K // Most recently used key first.
}

// Clone returns a deep copy of the metadata, so that backends never share the recency slice with their callers.
func (m Metadata[K]) Clone() Metadata[K] {
	return Metadata[K]{Policy: m.Policy, Recency: slices.Clone(m.Recency)}
}

// EvictionType selects the eviction policy wrapping a backend.
type EvictionType int

const (
	EvictionNone EvictionType = iota // No eviction wrapping; the cache is unbounded.
	EvictionLRU                      // Least recently used.
	EvictionLFU                      // Least frequently used; selectable but inert.
)

func (t EvictionType) String() string {
	switch t {
	case EvictionNone:
		return "none"
	case EvictionLRU:
		return "lru"
	case EvictionLFU:
		return "lfu"
	default:
		return fmt.Sprintf("EvictionType(%d)", int(t))
	}
}

// ParseEvictionType converts a case-insensitive policy name into an EvictionType. An empty name means EvictionNone.
func ParseEvictionType(name string) (EvictionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return EvictionNone, nil
	case "lru":
		return EvictionLRU, nil
	case "lfu":
		return EvictionLFU, nil
	default:
		return EvictionNone, errors.WithContext(
			errors.Newf(CodeUnknownEvictionType, "unknown eviction type %q", name), "evictionType", name)
	}
}
