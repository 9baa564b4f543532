// Package metrics exposes the process's Prometheus metrics: execution
// status transition counts, allocator cycle duration, and admission queue
// depth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExecutionStatusTransitions counts every status written via
	// execution.Lifecycle.SetStatus, labeled by the status transitioned into.
	ExecutionStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "execctl_execution_status_transitions_total",
		Help: "Count of execution status writes, labeled by the status transitioned into.",
	}, []string{"status"})

	// AllocatorCycleDuration observes the wall-clock time of one allocator
	// tick, including any self-drain iterations it runs through.
	AllocatorCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "execctl_allocator_cycle_duration_seconds",
		Help:    "Duration of a single allocator tick, including self-drain iterations.",
		Buckets: prometheus.DefBuckets,
	})

	// QueueDepth reports the current size of an admission queue, labeled by
	// queue name ("pending" or "moderator_held").
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "execctl_admission_queue_depth",
		Help: "Current depth of an admission queue.",
	}, []string{"queue"})
)

// Handler exposes the process's registered metrics for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
