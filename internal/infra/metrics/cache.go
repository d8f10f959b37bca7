package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal, cacheEvictionsTotal, cacheSizeBytes) }

var cacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Tracks cache hits and misses for the result cache.",
	},
	[]string{"cache", "result"}, // e.g., cache="enhancement", result="hit"
)

var cacheEvictionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_evictions_total",
		Help: "Entries removed from the result cache, labeled by reason.",
	},
	[]string{"cache", "reason"}, // 'expired', 'capacity'
)

var cacheSizeBytes = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cache_size_bytes",
		Help: "Approximate in-memory size of the result cache.",
	},
	[]string{"cache"},
)

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func IncCacheEviction(cacheName, reason string) {
	cacheEvictionsTotal.WithLabelValues(norm(cacheName), norm(reason)).Inc()
}

func SetCacheSize(cacheName string, bytes int64) {
	cacheSizeBytes.WithLabelValues(norm(cacheName)).Set(float64(bytes))
}
