package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the licensing module.
type Metrics struct {
	// Activation outcomes by result and error ID
	Activations *prometheus.CounterVec

	// Device mismatch rejections, the primary fraud signal
	DeviceMismatches prometheus.Counter

	// Remediation actions by action and decision
	Remediations *prometheus.CounterVec

	// Signed artifacts issued
	ArtifactsIssued prometheus.Counter

	// Activation latency including artifact signing
	ActivateLatency prometheus.Histogram
}

// New creates a Metrics instance with all licensing metrics registered.
func New() *Metrics {
	return &Metrics{
		Activations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_activations_total",
			Help: "Total activation attempts by result and error ID",
		}, []string{"result", "error_id"}),

		DeviceMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_device_mismatch_total",
			Help: "Activation attempts rejected because the key is bound to another device",
		}),

		Remediations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_remediations_total",
			Help: "Admin remediation actions by action and decision",
		}, []string{"action", "decision"}),

		ArtifactsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_artifacts_issued_total",
			Help: "Signed license artifacts issued",
		}),

		ActivateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "keygate_activate_duration_seconds",
			Help:    "Duration of activation including artifact signing",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementActivation records an activation outcome.
func (m *Metrics) IncrementActivation(result, errorID string) {
	if m != nil {
		m.Activations.WithLabelValues(result, errorID).Inc()
	}
}

// IncrementDeviceMismatch records a mismatch rejection.
func (m *Metrics) IncrementDeviceMismatch() {
	if m != nil {
		m.DeviceMismatches.Inc()
	}
}

// IncrementRemediation records a gateway action outcome.
func (m *Metrics) IncrementRemediation(action, decision string) {
	if m != nil {
		m.Remediations.WithLabelValues(action, decision).Inc()
	}
}

// IncrementArtifactIssued records one signed artifact.
func (m *Metrics) IncrementArtifactIssued() {
	if m != nil {
		m.ArtifactsIssued.Inc()
	}
}

// ObserveActivateLatency records the total activation duration.
func (m *Metrics) ObserveActivateLatency(d time.Duration) {
	if m != nil {
		m.ActivateLatency.Observe(d.Seconds())
	}
}
