package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvocationTotal tracks finished scanner invocations by status
	InvocationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_invocations_total",
			Help: "Total number of scanner invocations by terminal status",
		},
		[]string{"status"},
	)

	// InvocationDuration tracks wall-clock duration of scanner invocations
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scanner_invocation_duration_seconds",
			Help:    "Duration of scanner invocations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)

	// OutputBytes tracks bytes forwarded from the scanner per stream
	OutputBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scanner_output_bytes_total",
			Help: "Total bytes of scanner output forwarded to hosts",
		},
		[]string{"stream"},
	)

	// ActiveInvocations tracks scanner processes currently running
	ActiveInvocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scanner_active_invocations",
			Help: "Number of scanner processes currently running",
		},
	)
)

// RecordInvocation records a finished invocation.
// status is "succeeded" or the failure kind (launch, process, overflow, cancelled).
func RecordInvocation(status string, duration float64) {
	InvocationTotal.WithLabelValues(status).Inc()
	InvocationDuration.WithLabelValues(status).Observe(duration)
}

// RecordOutput records n bytes forwarded from the given stream
func RecordOutput(stream string, n int) {
	OutputBytes.WithLabelValues(stream).Add(float64(n))
}

// InvocationStarted increments the active invocation gauge
func InvocationStarted() {
	ActiveInvocations.Inc()
}

// InvocationFinished decrements the active invocation gauge
func InvocationFinished() {
	ActiveInvocations.Dec()
}
