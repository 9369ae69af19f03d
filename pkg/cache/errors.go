package cache

import "github.com/jmgilman/go/errors"

// Error codes of the cache layers. Every failure a cache returns is a PlatformError carrying one of these codes (or
// errors.CodeInvalidConfig for rejected constructor arguments), so callers can branch on errors.GetCode.
const (
	// CodeUnknownEvictionType indicates an eviction type selector that matches no known policy.
	CodeUnknownEvictionType errors.ErrorCode = "UNKNOWN_EVICTION_TYPE"
	// CodeStorage indicates a backend could not complete an I/O operation (disk, redis).
	CodeStorage errors.ErrorCode = "CACHE_STORAGE_ERROR"
	// CodeSerialization indicates a value, key or metadata could not be encoded or decoded.
	CodeSerialization errors.ErrorCode = "CACHE_SERIALIZATION_ERROR"
	// CodeCorruptMetadata indicates the metadata slot doesn't describe the data it sits next to.
	CodeCorruptMetadata errors.ErrorCode = "CACHE_CORRUPT_METADATA"
)

// unknownEvictionType builds the construction error for an unsupported eviction type.
func unknownEvictionType(evictionType EvictionType) error {
	return errors.WithContext(
		errors.Newf(CodeUnknownEvictionType, "unknown eviction type %s", evictionType),
		"evictionType", evictionType.String())
}

// invalidMaxEntrySize builds the construction error for a non-positive capacity.
func invalidMaxEntrySize(maxEntrySize int) error {
	return errors.WithContext(
		errors.Newf(errors.CodeInvalidConfig, "max entry size must be positive, got %d", maxEntrySize),
		"maxEntrySize", maxEntrySize)
}
