// Package builder assembles caches out of a storage backend and an optional eviction policy, so callers pick a
// backend and a policy instead of wiring the layers by hand.
//
//	fast, err := builder.BuildInMemory[string, []byte](builder.New().WithEviction(128, cache.EvictionLRU))
//
// Go methods can't have type parameters, so builders hold the settings and generic Build functions produce caches.

package builder

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
	"github.com/nobletooth/strata/pkg/cache"
	"github.com/nobletooth/strata/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// Builder holds the eviction settings of a single level cache. The zero eviction type (EvictionNone) builds a bare,
// unbounded backend.
type Builder struct {
	maxEntrySize int
	evictionType cache.EvictionType
}

// New returns a builder without eviction.
func New() *Builder {
	return &Builder{evictionType: cache.EvictionNone}
}

// WithEviction bounds built caches to maxEntrySize entries using the given policy.
func (b *Builder) WithEviction(maxEntrySize int, evictionType cache.EvictionType) *Builder {
	b.maxEntrySize = maxEntrySize
	b.evictionType = evictionType
	return b
}

// wrap puts the backend behind the configured eviction policy, if any.
func wrap[K comparable, V any](b *Builder, backend cache.Cache[K, V], kind string) (cache.Cache[K, V], error) {
	if b.evictionType == cache.EvictionNone {
		return backend, nil
	}
	evictable, err := cache.NewEvictableCache(backend, b.maxEntrySize, b.evictionType)
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetCode(err), "failed to build evictable %s cache", kind)
	}
	return evictable, nil
}

// localDir resolves the filesystem of a file backed cache. A nil fsys means the local filesystem, which is rooted at
// "/", so relative directories are made absolute against the working directory.
func localDir(fsys core.FS, dir string) (core.FS, string, error) {
	if fsys != nil {
		return fsys, dir, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", errors.WithContext(
			errors.Wrap(err, errors.CodeInvalidConfig, "failed to resolve cache directory"), "dir", dir)
	}
	return billy.NewLocal(), absDir, nil
}

// BuildInMemory builds a cache kept in process memory.
func BuildInMemory[K comparable, V any](b *Builder) (cache.Cache[K, V], error) {
	return wrap[K, V](b, storage.NewMemoryStore[K, V](), "in-memory")
}

// BuildFileSystem builds a cache persisted under dir. A nil fsys stands for the local filesystem.
func BuildFileSystem[K comparable, V any](b *Builder, fsys core.FS, dir string,
	opts ...storage.FileStoreOption) (cache.Cache[K, V], error) {
	fsys, dir, err := localDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFileStore[K, V](fsys, dir, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetCode(err), "failed to build file system cache")
	}
	return wrap[K, V](b, store, "file system")
}

// BuildRedis builds a cache kept in redis under the given key prefix.
func BuildRedis[K comparable, V any](b *Builder, client redis.UniversalClient, prefix string,
	timeout time.Duration) (cache.Cache[K, V], error) {
	return wrap[K, V](b, storage.NewRedisStore[K, V](client, prefix, timeout), "redis")
}

// BuildSharded builds shardCount file system caches, each in its own subdirectory of dir. The eviction capacity
// applies to every shard on its own.
func BuildSharded[K comparable, V any](b *Builder, fsys core.FS, dir string, shardCount int,
	opts ...storage.FileStoreOption) (*cache.ShardedCache[K, V], error) {
	fsys, dir, err := localDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	sharded, err := cache.NewShardedCache(func(shard int) (cache.Cache[K, V], error) {
		return BuildFileSystem[K, V](b, fsys, filepath.Join(dir, fmt.Sprintf("shard-%03d", shard)), opts...)
	}, shardCount)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetCode(err), "failed to build sharded cache")
	}
	return sharded, nil
}

// TwoLevelBuilder holds the settings of a two-level cache: an in-memory fast tier in front of a file system slow tier.
type TwoLevelBuilder struct {
	level1, level2 *Builder
	level2FS       core.FS // Nil stands for the local filesystem.
	level2Dir      string
	level2Options  []storage.FileStoreOption
}

// NewTwoLevel returns a two-level builder without eviction on either tier, keeping the slow tier in the working
// directory.
func NewTwoLevel() *TwoLevelBuilder {
	return &TwoLevelBuilder{level1: New(), level2: New(), level2Dir: "."}
}

// WithLevel1Eviction bounds the fast tier.
func (t *TwoLevelBuilder) WithLevel1Eviction(maxEntrySize int, evictionType cache.EvictionType) *TwoLevelBuilder {
	t.level1.WithEviction(maxEntrySize, evictionType)
	return t
}

// WithLevel2Eviction bounds the slow tier.
func (t *TwoLevelBuilder) WithLevel2Eviction(maxEntrySize int, evictionType cache.EvictionType) *TwoLevelBuilder {
	t.level2.WithEviction(maxEntrySize, evictionType)
	return t
}

// WithLevel2Dir sets the directory of the slow tier.
func (t *TwoLevelBuilder) WithLevel2Dir(dir string) *TwoLevelBuilder {
	t.level2Dir = dir
	return t
}

// WithLevel2FS keeps the slow tier on the given filesystem instead of the local one.
func (t *TwoLevelBuilder) WithLevel2FS(fsys core.FS) *TwoLevelBuilder {
	t.level2FS = fsys
	return t
}

// WithLevel2Options customizes the file store of the slow tier.
func (t *TwoLevelBuilder) WithLevel2Options(opts ...storage.FileStoreOption) *TwoLevelBuilder {
	t.level2Options = append(t.level2Options, opts...)
	return t
}

// BuildTwoLevel builds the fast tier, then the slow tier, and composes them.
func BuildTwoLevel[K comparable, V any](t *TwoLevelBuilder) (*cache.TwoLevelCache[K, V], error) {
	fast, err := BuildInMemory[K, V](t.level1)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetCode(err), "failed to build level 1 cache")
	}
	slow, err := BuildFileSystem[K, V](t.level2, t.level2FS, t.level2Dir, t.level2Options...)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetCode(err), "failed to build level 2 cache")
	}
	return cache.NewTwoLevelCache(fast, slow), nil
}
