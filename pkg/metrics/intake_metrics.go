package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IntakeMetrics tracks intake outcomes. A nil *IntakeMetrics is a no-op.
type IntakeMetrics struct {
	sessionsStarted   prometheus.Counter
	sessionsExpired   prometheus.Counter
	documentsReceived prometheus.Counter
	comparisons       *prometheus.CounterVec
	comparisonLatency *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lab_compare",
			Name:      "sessions_started_total",
			Help:      "Intake sessions started or restarted.",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lab_compare",
			Name:      "sessions_expired_total",
			Help:      "Sessions dropped by TTL while collecting documents.",
		}),
		documentsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lab_compare",
			Name:      "documents_received_total",
			Help:      "Documents stored into a session slot.",
		}),
		comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lab_compare",
			Name:      "comparisons_total",
			Help:      "Comparison pipelines by result.",
		}, []string{"result"}),
		comparisonLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lab_compare",
			Name:      "comparison_duration_seconds",
			Help:      "Extraction plus comparison time of pipelines by result.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.sessionsStarted,
			m.sessionsExpired,
			m.documentsReceived,
			m.comparisons,
			m.comparisonLatency,
		)
	}
	return m
}

func (m *IntakeMetrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *IntakeMetrics) SessionExpired() {
	if m == nil {
		return
	}
	m.sessionsExpired.Inc()
}

func (m *IntakeMetrics) DocumentReceived() {
	if m == nil {
		return
	}
	m.documentsReceived.Inc()
}

// ComparisonFinished records a pipeline; reason is "" on success.
func (m *IntakeMetrics) ComparisonFinished(reason string, d time.Duration) {
	if m == nil {
		return
	}
	result := reason
	if result == "" {
		result = "success"
	}
	m.comparisons.WithLabelValues(result).Inc()
	m.comparisonLatency.WithLabelValues(result).Observe(d.Seconds())
}
