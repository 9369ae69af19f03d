// This module implements a store persisted on a filesystem, so a cache can outlive the process that filled it.
// On-disk layout:
// A store owns a directory holding two files. `cache` holds the whole key-value map and `meta` holds the metadata
// slot; an empty `meta` file means nothing was stored in the slot. Every call reads the file it needs and every
// mutation rewrites it in full, so no file handle is held between calls and another process can reopen the directory
// later on.

package storage

import (
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"github.com/klauspost/compress/zstd"
	"github.com/nobletooth/strata/pkg/cache"
)

const (
	dataFileName     = "cache"
	metadataFileName = "meta"
	dirPerm          = 0o755
	filePerm         = 0o644
)

type fileStoreOptions struct {
	reuseExisting bool
	compress      bool
	codec         Codec
	// Bloom filter sizing; the filter is disabled when bloomExpectedKeys is zero.
	bloomExpectedKeys      uint
	bloomFalsePositiveRate float64
}

// FileStoreOption customizes a FileStore at construction.
type FileStoreOption func(*fileStoreOptions)

// WithReuseExisting keeps the key-value pairs found in the directory instead of resetting them, so a new process can
// resume a cache left behind by an earlier one.
func WithReuseExisting() FileStoreOption {
	return func(o *fileStoreOptions) { o.reuseExisting = true }
}

// WithCompression compresses both files with zstd. A directory must always be opened with the same setting.
func WithCompression() FileStoreOption {
	return func(o *fileStoreOptions) { o.compress = true }
}

// WithCodec replaces the default GobCodec.
func WithCodec(codec Codec) FileStoreOption {
	return func(o *fileStoreOptions) { o.codec = codec }
}

// WithBloomFilter keeps an in-process bloom filter of the stored keys, sized for expectedKeys keys at the given false
// positive rate. Lookups of keys the filter rules out are answered without reading the disk. Deleted keys stay in the
// filter until DeleteAll, which only costs a disk read on lookup.
func WithBloomFilter(expectedKeys uint, falsePositiveRate float64) FileStoreOption {
	return func(o *fileStoreOptions) {
		o.bloomExpectedKeys = expectedKeys
		o.bloomFalsePositiveRate = falsePositiveRate
	}
}

// FileStore is a store persisted as files under a directory of a core.FS. It is not thread-safe, and a directory
// must be used by a single store at a time.
type FileStore[K comparable, V any] struct { // Implements cache.Cache.
	fsys         core.FS
	dir          string
	dataPath     string
	metadataPath string
	codec        Codec
	encoder      *zstd.Encoder      // Nil if compression is disabled.
	decoder      *zstd.Decoder      // Nil if compression is disabled.
	filter       *bloom.BloomFilter // Nil if the bloom filter is disabled.
}

var (
	_ cache.Cache[string, string] = (*FileStore[string, string])(nil)
	_ cache.KeyLister[string]     = (*FileStore[string, string])(nil)
)

// NewFileStore is the constructor for FileStore. The directory and both files are created if missing. Unless
// WithReuseExisting is given, the key-value map is reset to empty; the metadata file is left as is either way.
func NewFileStore[K comparable, V any](fsys core.FS, dir string, opts ...FileStoreOption) (*FileStore[K, V], error) {
	options := fileStoreOptions{codec: GobCodec{}}
	for _, opt := range opts {
		opt(&options)
	}
	store := &FileStore[K, V]{
		fsys:         fsys,
		dir:          dir,
		dataPath:     path.Join(dir, dataFileName),
		metadataPath: path.Join(dir, metadataFileName),
		codec:        options.codec,
	}
	if options.compress {
		var err error
		if store.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1)); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to create zstd encoder")
		}
		if store.decoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1)); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to create zstd decoder")
		}
	}

	if err := fsys.MkdirAll(dir, dirPerm); err != nil {
		return nil, storageError(err, "create directory", dir)
	}
	for _, filePath := range []string{store.dataPath, store.metadataPath} {
		exists, err := fsys.Exists(filePath)
		if err != nil {
			return nil, storageError(err, "stat", filePath)
		}
		if !exists {
			if err := fsys.WriteFile(filePath, nil, filePerm); err != nil {
				return nil, storageError(err, "create", filePath)
			}
		}
	}

	var data map[K]V
	if options.reuseExisting {
		var err error
		if data, err = store.readData(); err != nil {
			return nil, err
		}
	} else if err := store.writeData(make(map[K]V)); err != nil {
		return nil, err
	}

	if options.bloomExpectedKeys > 0 {
		store.filter = bloom.NewWithEstimates(options.bloomExpectedKeys, options.bloomFalsePositiveRate)
		for key := range data {
			store.filter.Add(keyFingerprint(key))
		}
	}
	slog.Debug("Opened file store.", "dir", dir, "entries", len(data), "reuseExisting", options.reuseExisting,
		"compress", options.compress, "bloomFilter", store.filter != nil)
	return store, nil
}

// storageError wraps a filesystem failure.
func storageError(err error, op, filePath string) error {
	return errors.WithContext(errors.Wrapf(err, cache.CodeStorage, "failed to %s %s", op, filePath), "path", filePath)
}

// serializationError wraps an encoding or decoding failure.
func serializationError(err error, op, filePath string) error {
	return errors.WithContext(errors.Wrapf(err, cache.CodeSerialization, "failed to %s %s", op, filePath),
		"path", filePath)
}

// keyFingerprint returns a textual form of the key which is stable across processes, as long as the key holds no
// pointers.
func keyFingerprint[K comparable](key K) []byte {
	return fmt.Appendf(nil, "%#v", key)
}

// readFile returns the decompressed content of a file; empty files stay empty.
func (f *FileStore[K, V]) readFile(filePath string) ([]byte, error) {
	content, err := f.fsys.ReadFile(filePath)
	if err != nil {
		return nil, storageError(err, "read", filePath)
	}
	if len(content) == 0 || f.decoder == nil {
		return content, nil
	}
	decompressed, err := f.decoder.DecodeAll(content, nil)
	if err != nil {
		return nil, serializationError(err, "decompress", filePath)
	}
	return decompressed, nil
}

// writeFile compresses the content if enabled and replaces the file with it.
func (f *FileStore[K, V]) writeFile(filePath string, content []byte) error {
	if f.encoder != nil {
		content = f.encoder.EncodeAll(content, nil)
	}
	if err := f.fsys.WriteFile(filePath, content, filePerm); err != nil {
		return storageError(err, "write", filePath)
	}
	return nil
}

func (f *FileStore[K, V]) readData() (map[K]V, error) {
	content, err := f.readFile(f.dataPath)
	if err != nil {
		return nil, err
	}
	var data map[K]V
	if len(content) > 0 {
		if err := f.codec.Unmarshal(content, &data); err != nil {
			return nil, serializationError(err, "decode", f.dataPath)
		}
	}
	if data == nil {
		data = make(map[K]V)
	}
	return data, nil
}

func (f *FileStore[K, V]) writeData(data map[K]V) error {
	content, err := f.codec.Marshal(data)
	if err != nil {
		return serializationError(err, "encode", f.dataPath)
	}
	return f.writeFile(f.dataPath, content)
}

// ruledOut reports whether the bloom filter proves the key was never stored.
func (f *FileStore[K, V]) ruledOut(key K) bool {
	return f.filter != nil && !f.filter.Test(keyFingerprint(key))
}

func (f *FileStore[K, V]) Put(key K, value V) error {
	data, err := f.readData()
	if err != nil {
		return err
	}
	data[key] = value
	if err := f.writeData(data); err != nil {
		return err
	}
	if f.filter != nil {
		f.filter.Add(keyFingerprint(key))
	}
	return nil
}

func (f *FileStore[K, V]) Get(key K) (V, bool /*found*/, error) {
	if f.ruledOut(key) {
		return *new(V), false, nil
	}
	data, err := f.readData()
	if err != nil {
		return *new(V), false, err
	}
	value, found := data[key]
	return value, found, nil
}

// Delete removes the key; the data file is left untouched if the key is missing.
func (f *FileStore[K, V]) Delete(key K) error {
	if f.ruledOut(key) {
		return nil
	}
	data, err := f.readData()
	if err != nil {
		return err
	}
	if _, found := data[key]; !found {
		return nil
	}
	delete(data, key)
	return f.writeData(data)
}

func (f *FileStore[K, V]) DeleteAll() error {
	if err := f.writeData(make(map[K]V)); err != nil {
		return err
	}
	if f.filter != nil {
		f.filter.ClearAll()
	}
	return nil
}

func (f *FileStore[K, V]) ContainsKey(key K) (bool, error) {
	if f.ruledOut(key) {
		return false, nil
	}
	data, err := f.readData()
	if err != nil {
		return false, err
	}
	_, found := data[key]
	return found, nil
}

func (f *FileStore[K, V]) Size() (int, error) {
	data, err := f.readData()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (f *FileStore[K, V]) Keys() ([]K, error) {
	data, err := f.readData()
	if err != nil {
		return nil, err
	}
	return slices.Collect(maps.Keys(data)), nil
}

func (f *FileStore[K, V]) StoreMetadata(metadata cache.Metadata[K]) error {
	content, err := f.codec.Marshal(metadata)
	if err != nil {
		return serializationError(err, "encode", f.metadataPath)
	}
	return f.writeFile(f.metadataPath, content)
}

func (f *FileStore[K, V]) GetMetadata() (cache.Metadata[K], bool /*found*/, error) {
	content, err := f.readFile(f.metadataPath)
	if err != nil {
		return cache.Metadata[K]{}, false, err
	}
	if len(content) == 0 {
		return cache.Metadata[K]{}, false, nil
	}
	var metadata cache.Metadata[K]
	if err := f.codec.Unmarshal(content, &metadata); err != nil {
		return cache.Metadata[K]{}, false, serializationError(err, "decode", f.metadataPath)
	}
	return metadata, true, nil
}

// Dir returns the directory holding the store files.
func (f *FileStore[K, V]) Dir() string {
	return f.dir
}

// Close releases the compression codecs. The files need no closing; the store must not be used afterward.
func (f *FileStore[K, V]) Close() error {
	if f.decoder != nil {
		f.decoder.Close()
	}
	if f.encoder != nil {
		return f.encoder.Close()
	}
	return nil
}
