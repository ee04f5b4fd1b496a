package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dakshin/partsquote/internal/core/domain"
)

// WorkerMetrics observes enrichment entries as they move through the worker.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	queueDepth      *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partsquote",
			Subsystem: "worker",
			Name:      "entries_processed_total",
			Help:      "Total processed queue entries by resulting status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "partsquote",
			Subsystem: "worker",
			Name:      "entry_duration_seconds",
			Help:      "Queue entry processing duration in seconds by resulting status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "partsquote",
			Subsystem: "worker",
			Name:      "entries_in_flight",
			Help:      "Number of queue entries currently being enriched.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "partsquote",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between entry creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	queueDepth := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "partsquote",
			Subsystem: "queue",
			Name:      "entries",
			Help:      "Queue entries by status at the last sweep.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, queueDepth)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		queueDepth:      queueDepth,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEntry() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishEntry(status string, duration time.Duration) {
	m.processInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveQueueCounts(counts domain.QueueCounts) {
	m.queueDepth.WithLabelValues(m.service, string(domain.QueueStatusPending)).Set(float64(counts.Pending))
	m.queueDepth.WithLabelValues(m.service, string(domain.QueueStatusProcessing)).Set(float64(counts.Processing))
	m.queueDepth.WithLabelValues(m.service, string(domain.QueueStatusCompleted)).Set(float64(counts.Completed))
	m.queueDepth.WithLabelValues(m.service, string(domain.QueueStatusFailed)).Set(float64(counts.Failed))
	m.queueDepth.WithLabelValues(m.service, string(domain.QueueStatusIncomplete)).Set(float64(counts.Incomplete))
}
