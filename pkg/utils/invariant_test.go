package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaiseInvariant(t *testing.T) {
	invariantsMetric.Reset()
	RaiseInvariant("lru", "untracked_backend_key", "Backend holds a key missing from the recency list.", "key", "K1")
	RaiseInvariant("lru", "untracked_backend_key", "Backend holds a key missing from the recency list.", "key", "K2")

	assert.Equal(t, 2, GetMetricValue("lru" /*module*/, "untracked_backend_key" /*invariantType*/))
	assert.Zero(t, GetMetricValue("lru" /*module*/, "evict_empty_list" /*invariantType*/))
}

func TestRaiseInvariant_PanicsInTestMode(t *testing.T) {
	previous := IsTestMode
	IsTestMode = true
	t.Cleanup(func() { IsTestMode = previous })

	assert.PanicsWithValue(t, "invariant violated: lru/evict_empty_list", func() {
		RaiseInvariant("lru", "evict_empty_list", "Eviction requested on an empty recency list.")
	})
}
