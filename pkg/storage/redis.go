package storage

import (
	"context"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/nobletooth/strata/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 500 * time.Millisecond

// RedisStore is a store kept in a redis server, so several processes can share it. The key-value pairs live in the
// `<prefix>data` hash, with fields named after the keys' Go syntax representation (%#v) and holding the encoded pair,
// and the metadata slot lives in `<prefix>meta`.
// Every call is a single round trip bounded by the store timeout; nothing is retried.
type RedisStore[K comparable, V any] struct { // Implements cache.Cache.
	client      redis.UniversalClient
	dataKey     string
	metadataKey string
	codec       Codec
	timeout     time.Duration
}

var (
	_ cache.Cache[string, string] = (*RedisStore[string, string])(nil)
	_ cache.KeyLister[string]     = (*RedisStore[string, string])(nil)
)

// redisEntry is the hash field value. The key is kept along with the value since field names can't be decoded back.
type redisEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// NewRedisStore is the constructor for RedisStore. The prefix should be unique per cache, e.g. "strata:sessions:".
// A non-positive timeout falls back to the default.
func NewRedisStore[K comparable, V any](client redis.UniversalClient, prefix string,
	timeout time.Duration) *RedisStore[K, V] {
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisStore[K, V]{
		client:      client,
		dataKey:     prefix + "data",
		metadataKey: prefix + "meta",
		codec:       GobCodec{},
		timeout:     timeout,
	}
}

func (r *RedisStore[K, V]) redisError(err error, op string) error {
	return errors.WithContext(errors.Wrapf(err, cache.CodeStorage, "redis %s failed", op), "key", r.dataKey)
}

// field returns the hash field name of a key.
func field[K comparable](key K) string {
	return string(keyFingerprint(key))
}

func (r *RedisStore[K, V]) Put(key K, value V) error {
	encoded, err := r.codec.Marshal(redisEntry[K, V]{Key: key, Value: value})
	if err != nil {
		return errors.Wrap(err, cache.CodeSerialization, "failed to encode value")
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.HSet(ctx, r.dataKey, field(key), encoded).Err(); err != nil {
		return r.redisError(err, "hset")
	}
	return nil
}

func (r *RedisStore[K, V]) Get(key K) (V, bool /*found*/, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	encoded, err := r.client.HGet(ctx, r.dataKey, field(key)).Bytes()
	if err == redis.Nil {
		return *new(V), false, nil
	}
	if err != nil {
		return *new(V), false, r.redisError(err, "hget")
	}
	var entry redisEntry[K, V]
	if err := r.codec.Unmarshal(encoded, &entry); err != nil {
		return *new(V), false, errors.Wrap(err, cache.CodeSerialization, "failed to decode value")
	}
	return entry.Value, true, nil
}

func (r *RedisStore[K, V]) Delete(key K) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.HDel(ctx, r.dataKey, field(key)).Err(); err != nil {
		return r.redisError(err, "hdel")
	}
	return nil
}

// DeleteAll drops the data hash; the metadata slot is kept.
func (r *RedisStore[K, V]) DeleteAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, r.dataKey).Err(); err != nil {
		return r.redisError(err, "del")
	}
	return nil
}

func (r *RedisStore[K, V]) ContainsKey(key K) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	exists, err := r.client.HExists(ctx, r.dataKey, field(key)).Result()
	if err != nil {
		return false, r.redisError(err, "hexists")
	}
	return exists, nil
}

func (r *RedisStore[K, V]) Size() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	size, err := r.client.HLen(ctx, r.dataKey).Result()
	if err != nil {
		return 0, r.redisError(err, "hlen")
	}
	return int(size), nil
}

// Keys decodes every pair of the data hash, so it costs a full read of the hash.
func (r *RedisStore[K, V]) Keys() ([]K, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	values, err := r.client.HVals(ctx, r.dataKey).Result()
	if err != nil {
		return nil, r.redisError(err, "hvals")
	}
	keys := make([]K, 0, len(values))
	for _, encoded := range values {
		var entry redisEntry[K, V]
		if err := r.codec.Unmarshal([]byte(encoded), &entry); err != nil {
			return nil, errors.Wrap(err, cache.CodeSerialization, "failed to decode key")
		}
		keys = append(keys, entry.Key)
	}
	return keys, nil
}

func (r *RedisStore[K, V]) StoreMetadata(metadata cache.Metadata[K]) error {
	encoded, err := r.codec.Marshal(metadata)
	if err != nil {
		return errors.Wrap(err, cache.CodeSerialization, "failed to encode metadata")
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, r.metadataKey, encoded, 0 /*no expiration*/).Err(); err != nil {
		return r.redisError(err, "set")
	}
	return nil
}

func (r *RedisStore[K, V]) GetMetadata() (cache.Metadata[K], bool /*found*/, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	encoded, err := r.client.Get(ctx, r.metadataKey).Bytes()
	if err == redis.Nil {
		return cache.Metadata[K]{}, false, nil
	}
	if err != nil {
		return cache.Metadata[K]{}, false, r.redisError(err, "get")
	}
	var metadata cache.Metadata[K]
	if err := r.codec.Unmarshal(encoded, &metadata); err != nil {
		return cache.Metadata[K]{}, false, errors.Wrap(err, cache.CodeSerialization, "failed to decode metadata")
	}
	return metadata, true, nil
}
