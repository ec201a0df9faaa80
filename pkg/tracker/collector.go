package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheDesc = prometheus.NewDesc(
		"driveguide_cache_lookups_total",
		"Cache lookups per provider by result.",
		[]string{"provider", "result"}, nil,
	)
	requestDesc = prometheus.NewDesc(
		"driveguide_provider_requests_total",
		"Remote requests per provider by result.",
		[]string{"provider", "result"}, nil,
	)
	fallbackDesc = prometheus.NewDesc(
		"driveguide_fallbacks_total",
		"Results served from fallback data per provider.",
		[]string{"provider"}, nil,
	)
)

// Describe implements prometheus.Collector.
func (t *Tracker) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheDesc
	ch <- requestDesc
	ch <- fallbackDesc
}

// Collect implements prometheus.Collector from a point-in-time snapshot.
func (t *Tracker) Collect(ch chan<- prometheus.Metric) {
	for provider, s := range t.Snapshot() {
		ch <- prometheus.MustNewConstMetric(cacheDesc, prometheus.CounterValue, float64(s.CacheHits), provider, "hit")
		ch <- prometheus.MustNewConstMetric(cacheDesc, prometheus.CounterValue, float64(s.CacheMisses), provider, "miss")
		ch <- prometheus.MustNewConstMetric(requestDesc, prometheus.CounterValue, float64(s.APISuccess), provider, "success")
		ch <- prometheus.MustNewConstMetric(requestDesc, prometheus.CounterValue, float64(s.APIFailures), provider, "failure")
		ch <- prometheus.MustNewConstMetric(requestDesc, prometheus.CounterValue, float64(s.APIZeroResult), provider, "zero")
		ch <- prometheus.MustNewConstMetric(fallbackDesc, prometheus.CounterValue, float64(s.Fallbacks), provider)
	}
}
