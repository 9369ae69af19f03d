// Package utils holds the process-wide helpers of strata: logging setup, build information and invariants.
//
// Invariants are conditions the cache layers guarantee among themselves and never expect to see broken, e.g. the LRU
// recency list naming exactly the keys its backend holds, or eviction never being asked of an empty list. Backend
// failures (a missing file, an unreachable redis) are regular errors, not invariant violations.
// A violation is logged and counted in `strata_invariants_total` instead of crashing the process; the caller still
// repairs its own state (e.g., the LRU re-tracks a key it finds untracked) and moves on. Binaries built with
// TestMode=true panic on violations instead, so tests can't silently pass over them.

package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "strata_invariants_total",
	Help: "Total number of invariant violations in the cache layers.",
}, []string{
	"module", // e.g. lru, log
	"type",   // e.g. untracked_backend_key
})

// RaiseInvariant records a violated invariant of `module`. Args are slog key-value pairs describing the violation.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + module + "/" + invariantType)
	}
}

// GetMetricValue returns how many times the invariant `invariantType` of `module` was violated.
func GetMetricValue(module, invariantType string) int {
	metric := &promclient.Metric{}
	if err := invariantsMetric.WithLabelValues(module, invariantType).Write(metric); err != nil {
		slog.Error("Failed to read invariant metric.", "module", module, "type", invariantType, "error", err)
		return 0
	}
	return int(metric.Counter.GetValue())
}
