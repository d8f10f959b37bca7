package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsSubmittedTotal, jobsFinishedTotal, jobRetriesTotal, queueDepth, jobsProcessing)
}

var jobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_submitted_total",
		Help: "Total number of jobs accepted for processing, labeled by service.",
	},
	[]string{"service"}, // 'transcription', 'enhancement'
)

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_finished_total",
		Help: "Total number of jobs that reached a terminal state, labeled by service and status.",
	},
	[]string{"service", "status"}, // 'completed', 'failed', 'cancelled'
)

var jobRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_retries_total",
		Help: "Total number of retry attempts scheduled after transient failures.",
	},
	[]string{"service"},
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "job_queue_depth",
		Help: "Current number of jobs waiting for a concurrency slot.",
	},
	[]string{"service"},
)

var jobsProcessing = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "jobs_processing",
		Help: "Current number of jobs holding a concurrency slot.",
	},
	[]string{"service"},
)

func IncJobSubmitted(service string) {
	jobsSubmittedTotal.WithLabelValues(norm(service)).Inc()
}

func IncJobFinished(service, status string) {
	jobsFinishedTotal.WithLabelValues(norm(service), norm(status)).Inc()
}

func IncJobRetry(service string) {
	jobRetriesTotal.WithLabelValues(norm(service)).Inc()
}

func SetQueueDepth(service string, n int) {
	queueDepth.WithLabelValues(norm(service)).Set(float64(n))
}

func SetProcessing(service string, n int) {
	jobsProcessing.WithLabelValues(norm(service)).Set(float64(n))
}
