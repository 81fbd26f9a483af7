package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	runTotal       *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runInFlight    prometheus.Gauge
	documentsTotal *prometheus.CounterVec
	chunksTotal    *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "ingest_runs_total",
			Help:      "Total finished ingestion runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "ingest_run_duration_seconds",
			Help:      "Ingestion run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "ingest_runs_in_flight",
			Help:      "Number of ingestion runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "documents_loaded_total",
			Help:      "Total documents loaded across ingestion runs.",
		},
		[]string{"service"},
	)
	chunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "chunks_indexed_total",
			Help:      "Total chunks written to the search index.",
		},
		[]string{"service"},
	)
	skippedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "files_skipped_total",
			Help:      "Total unreadable files skipped during ingestion.",
		},
		[]string{"service"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, documentsTotal, chunksTotal, skippedTotal)

	return &WorkerMetrics{
		registry:       registry,
		runTotal:       runTotal,
		runDuration:    runDuration,
		runInFlight:    runInFlight,
		documentsTotal: documentsTotal,
		chunksTotal:    chunksTotal,
		skippedTotal:   skippedTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(service string, duration time.Duration, counts domain.RunCounts, err error) {
	m.runInFlight.Dec()

	status := "completed"
	if err != nil {
		status = "failed"
	}

	m.runTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	m.documentsTotal.WithLabelValues(service).Add(float64(counts.DocumentsLoaded))
	m.chunksTotal.WithLabelValues(service).Add(float64(counts.ChunksIndexed))
	m.skippedTotal.WithLabelValues(service).Add(float64(counts.FilesSkipped))
}
