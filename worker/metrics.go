package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danintel/trusted-compute-framework/metrics"
)

// Worker collectors
var (
	// WorkOrdersTotal counts the processed work orders by final status.
	WorkOrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "workorders_total",
		Help:      "The number of work orders processed, by status",
	}, []string{"status"})
	// QueuedWorkOrders is the number of asynchronous work orders waiting.
	QueuedWorkOrders = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Name:      "workorders_queued",
		Help:      "The number of asynchronous work orders waiting to be processed",
	})
	// WorkOrderSeconds observes the processing time of work orders.
	WorkOrderSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Name:      "workorder_seconds",
		Help:      "Work order processing time",
		Buckets:   prometheus.DefBuckets,
	})
)

// RegisterMetrics registers the worker collectors in the default prometheus
// registry.
func RegisterMetrics() {
	metrics.Register(WorkOrdersTotal)
	metrics.Register(QueuedWorkOrders)
	metrics.Register(WorkOrderSeconds)
}
