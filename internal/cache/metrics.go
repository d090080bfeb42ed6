// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	lookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permtree_cache_lookups_total",
		Help: "Permission cache lookups by result (hit or miss)",
	}, []string{"result"})

	invalidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permtree_cache_invalidations_total",
		Help: "Permission cache invalidations by scope (holder or full)",
	}, []string{"scope"})

	resolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "permtree_resolve_duration_seconds",
		Help:    "Wall time of inheritance resolutions computed on cache miss",
		Buckets: prometheus.ExponentialBuckets(10e-6, 4, 10),
	})
)

// RegisterMetrics registers cache metrics with the given Prometheus
// registry. Call once at startup.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(lookupsTotal, invalidationsTotal, resolveDuration)
}
