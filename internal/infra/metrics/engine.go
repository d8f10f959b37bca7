package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(engineCallLatencyMs, engineTimeoutsTotal)
}

var engineCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "engine_call_latency_ms",
		Help:    "Engine call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
	},
	[]string{"service", "provider", "success"},
)

var engineTimeoutsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "engine_timeouts_total",
		Help: "Watchdog-enforced timeouts per service and provider.",
	},
	[]string{"service", "provider"},
)

func ObserveEngineCall(service, provider string, latencyMs int, success bool) {
	engineCallLatencyMs.WithLabelValues(norm(service), norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncEngineTimeout(service, provider string) {
	engineTimeoutsTotal.WithLabelValues(norm(service), norm(provider)).Inc()
}
