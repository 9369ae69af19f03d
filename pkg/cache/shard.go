// This module implements cache sharding which distributes keys uniformly across several caches. Each shard is a full
// Cache on its own (e.g., an LRU bounded file store in its own directory), so a large key space is split into smaller
// files that are cheaper to rewrite, and every shard enforces its own capacity.

package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/jmgilman/go/errors"
)

// ShardedCache is a cache implementation that distributes keys across multiple underlying caches (shards). A key
// always lands on the same shard, chosen by hashing it.
type ShardedCache[K comparable, V any] struct { // Implements Cache.
	shards      []Cache[K, V]
	hash        func(key K) uint64 // Helps choose the shards index.
	metadata    Metadata[K]        // Local to the sharded cache; independent of the shards' own slots.
	hasMetadata bool
}

var _ Cache[string, string] = (*ShardedCache[string, string])(nil)

// NewShardedCache is the constructor for ShardedCache. It takes a cacheGenerator function, which is responsible for
// creating the shard with the given index, and the desired number of shards (shardCount).
func NewShardedCache[K comparable, V any](cacheGenerator func(shard int) (Cache[K, V], error),
	shardCount int) (*ShardedCache[K, V], error) {
	if shardCount <= 0 {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeInvalidConfig, "shard count must be positive, got %d", shardCount),
			"shardCount", shardCount)
	}
	shardedCache := &ShardedCache[K, V]{shards: make([]Cache[K, V], shardCount), hash: keyHasher[K]()}
	for i := range shardCount {
		shard, err := cacheGenerator(i)
		if err != nil {
			return nil, errors.Wrapf(err, errors.GetCode(err), "failed to create shard %d", i)
		}
		shardedCache.shards[i] = shard
	}
	return shardedCache, nil
}

// keyHasher picks the hash function once per key type, to use in getShard.
func keyHasher[K comparable]() func(key K) uint64 {
	// fixedSize hashes the little endian representation of a numeric key.
	fixedSize := func(value uint64) uint64 {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], value)
		return xxhash.Sum64(b[:])
	}
	switch any(*new(K)).(type) {
	case string:
		return func(key K) uint64 { return xxhash.Sum64String(any(key).(string)) }
	case int:
		// Since int's size is architecture-dependent, we should cast it to a fixed-size type before hashing.
		return func(key K) uint64 { return fixedSize(uint64(any(key).(int))) }
	case uint:
		return func(key K) uint64 { return fixedSize(uint64(any(key).(uint))) }
	case int32:
		return func(key K) uint64 { return fixedSize(uint64(any(key).(int32))) }
	case uint32:
		return func(key K) uint64 { return fixedSize(uint64(any(key).(uint32))) }
	case int64:
		return func(key K) uint64 { return fixedSize(uint64(any(key).(int64))) }
	case uint64:
		return func(key K) uint64 { return fixedSize(any(key).(uint64)) }
	default:
		// As a fallback for other types (like structs), use fmt.Sprintf. This is less performant but works for any
		// type that can be printed.
		return func(key K) uint64 { return xxhash.Sum64String(fmt.Sprintf("%#v", key)) }
	}
}

// getShard determines which shard a given key belongs to. It does this by hashing the key and using the modulo operator
// to map the hash value to a shard index.
func (c *ShardedCache[K, V]) getShard(key K) Cache[K, V] {
	return c.shards[c.hash(key)%uint64(len(c.shards))]
}

func (c *ShardedCache[K, V]) Put(key K, value V) error {
	return c.getShard(key).Put(key, value)
}

func (c *ShardedCache[K, V]) Get(key K) (V, bool /*found*/, error) {
	return c.getShard(key).Get(key)
}

func (c *ShardedCache[K, V]) Delete(key K) error {
	return c.getShard(key).Delete(key)
}

// DeleteAll clears every shard; it stops at the first failing shard.
func (c *ShardedCache[K, V]) DeleteAll() error {
	for i, shard := range c.shards {
		if err := shard.DeleteAll(); err != nil {
			return errors.WithContext(err, "shard", i)
		}
	}
	return nil
}

func (c *ShardedCache[K, V]) ContainsKey(key K) (bool, error) {
	return c.getShard(key).ContainsKey(key)
}

// Size aggregates the sizes of all shards.
func (c *ShardedCache[K, V]) Size() (int, error) {
	total := 0
	for i, shard := range c.shards {
		size, err := shard.Size()
		if err != nil {
			return 0, errors.WithContext(err, "shard", i)
		}
		total += size
	}
	return total, nil
}

func (c *ShardedCache[K, V]) StoreMetadata(metadata Metadata[K]) error {
	c.metadata = metadata.Clone()
	c.hasMetadata = true
	return nil
}

func (c *ShardedCache[K, V]) GetMetadata() (Metadata[K], bool /*found*/, error) {
	return c.metadata.Clone(), c.hasMetadata, nil
}

// ShardCount returns the number of shards.
func (c *ShardedCache[K, V]) ShardCount() int {
	return len(c.shards)
}
