package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evictionsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_evictions_total",
		Help: "Total number of keys evicted to respect a cache capacity.",
	}, []string{"policy" /* lru | lfu */})
	tierLookupsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_tier_lookups_total",
		Help: "Total number of two-level cache lookups, by the tier that served them.",
	}, []string{
		"tier",   // fast | slow | none
		"status", // hit | miss
	})
)

const (
	tierFast = "fast"
	tierSlow = "slow"
	tierNone = "none"
)
