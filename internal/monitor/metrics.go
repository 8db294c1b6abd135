package monitor

import (
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"github.com/bissquit/status-monitor/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = metrics.Namespace

var (
	probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Time spent probing a service, including failed probes",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	probeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Probe results by service and classified status",
		},
		[]string{"service", "status"},
	)

	serviceSeverity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "severity",
			Help:      "Current severity per service (1 operational .. 4 major_outage)",
		},
		[]string{"service"},
	)

	incidentsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "opened_total",
			Help:      "Incidents opened on a transition out of operational",
		},
		[]string{"service"},
	)

	passDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "duration_seconds",
			Help:      "Time to check every configured service once",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	lastPassTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed pass",
		},
	)
)

// recordProbe records the outcome of one probe.
func recordProbe(service string, severity domain.Severity, duration time.Duration) {
	probeDuration.WithLabelValues(service).Observe(duration.Seconds())
	probeResults.WithLabelValues(service, severity.String()).Inc()
	serviceSeverity.WithLabelValues(service).Set(float64(severity))
}

// recordIncident counts an opened incident.
func recordIncident(service string) {
	incidentsOpened.WithLabelValues(service).Inc()
}

// recordPass records a completed pass.
func recordPass(duration time.Duration, completedAt time.Time) {
	passDuration.Observe(duration.Seconds())
	lastPassTimestamp.Set(float64(completedAt.Unix()))
}
