package signature

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danintel/trusted-compute-framework/metrics"
)

// Signature collectors
var (
	// SignaturesTotal counts the requests and results signed.
	SignaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "signatures_total",
		Help:      "The number of work order requests and results signed",
	}, []string{"side"})
	// VerificationsTotal counts the verifications by outcome.
	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "verifications_total",
		Help:      "The number of signature verifications, by status",
	}, []string{"status"})
)

// RegisterMetrics registers the signature collectors in the default
// prometheus registry.
func RegisterMetrics() {
	metrics.Register(SignaturesTotal)
	metrics.Register(VerificationsTotal)
}
